// Package notify implements the Notification Fan-out (§4.9):
// broadcastSystemAlert enumerates users with a target role, creates a
// per-user notification record, and isolates failures per recipient.
// Grounded on the teacher's internal/database/db_users.go role-scoped
// query shape, generalized here across multiple target roles with one
// concurrent worker per role (its recipients written in turn), joined by
// an errgroup — an enrichment
// over the teacher's own bare fire-and-forget goroutines, since the core
// needs to know the fan-out completed (for tests and for logging) without
// one recipient's failure blocking the others.
package notify

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"support-chat-broker/internal/models"
	"support-chat-broker/internal/repository"
)

// Broadcaster is the narrow transport slice the fan-out needs to push a
// notification to a role room. Defined locally to avoid an import cycle
// with internal/transport.
type Broadcaster interface {
	EmitToRoom(room string, eventType string, payload any)
}

// OpsMirror is the narrow slice of internal/telemetry.OpsMirror the
// fan-out needs to shadow an alert into ops Telegram. Defined locally so
// notify never imports telemetry directly; a nil OpsMirror is simply not
// wired (the zero value of *Fanout.mirror), matching the disabled-mirror
// no-op contract telemetry.OpsMirror already provides.
type OpsMirror interface {
	Send(title, body string, severity models.NotificationSeverity)
}

// Fanout is the Notification Fan-out component.
type Fanout struct {
	repo      repository.Repository
	broadcast Broadcaster
	mirror    OpsMirror
}

// NewFanout builds a Fanout over the given repository and broadcaster.
func NewFanout(repo repository.Repository, broadcast Broadcaster) *Fanout {
	return &Fanout{repo: repo, broadcast: broadcast}
}

// WithOpsMirror attaches an ops-alert mirror (e.g. internal/telemetry's
// Telegram mirror); every BroadcastSystemAlert call is shadowed into it.
// Returns f for chaining at construction time.
func (f *Fanout) WithOpsMirror(mirror OpsMirror) *Fanout {
	f.mirror = mirror
	return f
}

// maxRecipientsPerRole bounds how many users of a single role are fanned
// out to in one alert; a deployment with more admins than this is outside
// the scope this core is built for.
const maxRecipientsPerRole = 500

// BroadcastSystemAlert enumerates users with each target role, creates a
// per-user notification record for each, and broadcasts the alert into
// every target role's room. Per-recipient persistence errors are logged
// and do not prevent the others from being written or the broadcast from
// happening (§7 "a persistence failure ... does not prevent subsequent
// steps").
func (f *Fanout) BroadcastSystemAlert(ctx context.Context, title, body string, severity models.NotificationSeverity, targetRoles []models.Role, payload models.JSONMap) {
	g, gctx := errgroup.WithContext(ctx)

	for _, role := range targetRoles {
		role := role
		g.Go(func() error {
			users, err := f.repo.FindUsersByRole(gctx, role, maxRecipientsPerRole)
			if err != nil {
				log.Printf("notify: find users for role %s: %v", role, err)
				return nil
			}
			for _, u := range users {
				n := models.Notification{
					UserID:   u.ID,
					Type:     "system_alert",
					Title:    title,
					Body:     body,
					Severity: severity,
					Payload:  payload,
				}
				if _, err := f.repo.CreateNotification(gctx, n); err != nil {
					log.Printf("notify: create notification for user %s: %v", u.ID, err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, role := range targetRoles {
		f.broadcast.EmitToRoom(string(role), "new_notification", map[string]any{
			"title":    title,
			"body":     body,
			"severity": severity,
			"payload":  payload,
		})
	}

	if f.mirror != nil {
		f.mirror.Send(title, body, severity)
	}
}

// NotifyRequestAgent implements the request_agent notification (§6 inbound
// events table: "create request_agent notification").
func (f *Fanout) NotifyRequestAgent(ctx context.Context, sessionID string) {
	f.BroadcastSystemAlert(ctx, "Agent requested", "A visitor requested a human agent.", models.SeverityInfo,
		[]models.Role{models.RoleAgent, models.RoleAdmin}, models.JSONMap{"sessionId": sessionID})
}

// NotifySessionTimeoutWarning implements the session_timeout notification.
func (f *Fanout) NotifySessionTimeoutWarning(ctx context.Context, sessionID string) {
	f.BroadcastSystemAlert(ctx, "Session timing out", "A session is about to time out.", models.SeverityWarning,
		[]models.Role{models.RoleAdmin}, models.JSONMap{"sessionId": sessionID})
}

// NotifyAgentConnected implements the agent_connected notification,
// consumed by the presence.Notifier interface.
func (f *Fanout) NotifyAgentConnected(ctx context.Context, agentID string) {
	f.BroadcastSystemAlert(ctx, "Agent online", "An agent connected.", models.SeverityInfo,
		[]models.Role{models.RoleAdmin}, models.JSONMap{"agentId": agentID})
}

// NotifyAgentDisconnected implements the agent_disconnected notification,
// consumed by the presence.Notifier interface.
func (f *Fanout) NotifyAgentDisconnected(ctx context.Context, agentID string) {
	f.BroadcastSystemAlert(ctx, "Agent offline", "An agent disconnected.", models.SeverityInfo,
		[]models.Role{models.RoleAdmin}, models.JSONMap{"agentId": agentID})
}

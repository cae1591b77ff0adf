package notify

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"support-chat-broker/internal/models"
	"support-chat-broker/internal/repository"
)

type fakeRepo struct {
	repository.Repository
	usersByRole map[models.Role][]models.AppUser

	mu            sync.Mutex
	notifications []models.Notification
}

func (f *fakeRepo) FindUsersByRole(ctx context.Context, role models.Role, limit int) ([]models.AppUser, error) {
	return f.usersByRole[role], nil
}

func (f *fakeRepo) CreateNotification(ctx context.Context, n models.Notification) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, n)
	return &n, nil
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *fakeBroadcaster) EmitToRoom(room, eventType string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, room+":"+eventType)
}

func TestBroadcastSystemAlertFansOutPerUser(t *testing.T) {
	repo := &fakeRepo{usersByRole: map[models.Role][]models.AppUser{
		models.RoleAdmin: {{ID: "u1", Role: models.RoleAdmin}, {ID: "u2", Role: models.RoleAdmin}},
		models.RoleAgent: {{ID: "u3", Role: models.RoleAgent}},
	}}
	bc := &fakeBroadcaster{}
	f := NewFanout(repo, bc)

	f.BroadcastSystemAlert(context.Background(), "t", "b", models.SeverityInfo, []models.Role{models.RoleAdmin, models.RoleAgent}, nil)

	require.Len(t, repo.notifications, 3)
	require.Contains(t, bc.events, "admin:new_notification")
	require.Contains(t, bc.events, "agent:new_notification")
}

func TestBroadcastSystemAlertHandlesRoleWithNoRecipients(t *testing.T) {
	repo := &fakeRepo{usersByRole: map[models.Role][]models.AppUser{
		models.RoleAdmin: {{ID: "u1", Role: models.RoleAdmin}},
	}}
	bc := &fakeBroadcaster{}
	f := NewFanout(repo, bc)

	// RoleViewer has no entry in usersByRole (nil slice, not an error) —
	// exercises the zero-recipients path alongside a populated one.
	f.BroadcastSystemAlert(context.Background(), "t", "b", models.SeverityInfo, []models.Role{models.RoleAdmin, models.RoleViewer}, nil)

	require.Len(t, repo.notifications, 1)
}

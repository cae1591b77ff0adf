package obsv

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandlerExportsRegisteredCollectors(t *testing.T) {
	m := New()
	m.DispatchDecisions.WithLabelValues("ai_reply").Inc()
	m.LiveVisitors.Set(3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "supportchat_dispatcher_decisions_total")
	require.Contains(t, body, "supportchat_presence_live_visitors")
}

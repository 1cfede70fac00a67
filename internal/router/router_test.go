package router

import (
	"testing"

	"chatline/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The handlers read their path parameters as "id" (and "mid" for messages),
// so every registered route must bind exactly those names. A mismatched name
// makes gin return "" for the lookup and the endpoint rejects every request.
func TestSetup_RouteParamNamesMatchHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine, deps := Setup(&config.Config{}, nil, nil)
	require.NotNil(t, deps)
	require.NotNil(t, deps.Scheduler)

	expected := []string{
		"POST /api/v1/chats/:id/leave",
		"POST /api/v1/chats/:id/participants",
		"POST /api/v1/chats/:id/messages",
		"GET /api/v1/chats/:id/messages",
		"POST /api/v1/messages/:mid/delivered",
		"POST /api/v1/messages/:mid/read",
		"GET /api/v1/messages/:mid/info",
		"POST /api/v1/calls/:id/answer",
		"POST /api/v1/calls/:id/decline",
		"POST /api/v1/calls/:id/end",
		"POST /api/v1/calls/:id/join",
		"POST /api/v1/calls/:id/leave",
		"GET /api/v1/calls/:id",
		"POST /api/v1/statuses/:id/view",
		"GET /api/v1/statuses/:id/viewers",
		"PUT /api/v1/notifications/:id/read",
	}
	registered := make(map[string]bool)
	for _, r := range engine.Routes() {
		registered[r.Method+" "+r.Path] = true
	}
	for _, route := range expected {
		assert.Truef(t, registered[route], "route %s not registered", route)
	}
}

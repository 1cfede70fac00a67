package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"chatline/internal/domain"
	"chatline/internal/models"
	"chatline/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCallStore struct {
	mu     sync.Mutex
	nextID uint
	calls  map[uint]*models.Call
}

func newMemCallStore() *memCallStore {
	return &memCallStore{nextID: 1, calls: make(map[uint]*models.Call)}
}

func (m *memCallStore) Create(c *models.Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.nextID
	m.nextID++
	cp := *c
	m.calls[c.ID] = &cp
	return nil
}

func (m *memCallStore) Update(c *models.Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.calls[c.ID] = &cp
	return nil
}

func (m *memCallStore) GetByID(id uint) (*models.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCallStore) CreateParticipant(p *models.CallParticipant) error        { return nil }
func (m *memCallStore) CloseParticipant(callID, userID uint, at time.Time) error { return nil }

// newCallTestRouter registers the call routes with the same path patterns the
// real router uses, so the parameter names the handlers read are pinned here.
func newCallTestRouter(t *testing.T, svc *service.CallService, asUserID uint) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewCallHandler(svc, nil)

	r := gin.New()
	calls := r.Group("/api/v1/calls")
	calls.Use(func(c *gin.Context) {
		c.Set("user_id", asUserID)
		c.Set("username", fmt.Sprintf("user%d", asUserID))
	})
	calls.POST("/:id/answer", h.Answer)
	calls.POST("/:id/decline", h.Decline)
	calls.POST("/:id/end", h.End)
	calls.POST("/:id/join", h.Join)
	calls.POST("/:id/leave", h.Leave)
	calls.GET("/:id", h.Get)
	return r
}

func newRingingCall(t *testing.T) (*service.CallService, *models.Call) {
	t.Helper()
	svc := service.NewCallService(newMemCallStore(), nil, nil, 45*time.Second, 2*time.Second)
	call, err := svc.Initiate(1, 2, 42, domain.CallTypeAudio)
	require.NoError(t, err)
	return svc, call
}

func TestCallRoutes_Answer(t *testing.T) {
	svc, call := newRingingCall(t)
	r := newCallTestRouter(t, svc, 2)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/calls/%d/answer", call.ID), nil))

	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	var got models.Call
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, domain.CallStatusAnswered, got.Status)
	assert.Equal(t, call.ID, got.ID)
}

func TestCallRoutes_DeclineAndGet(t *testing.T) {
	svc, call := newRingingCall(t)
	receiver := newCallTestRouter(t, svc, 2)

	w := httptest.NewRecorder()
	receiver.ServeHTTP(w, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/calls/%d/decline", call.ID), nil))
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	w = httptest.NewRecorder()
	receiver.ServeHTTP(w, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/calls/%d", call.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Call
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, domain.CallStatusDeclined, got.Status)
}

func TestCallRoutes_End(t *testing.T) {
	svc, call := newRingingCall(t)
	_, err := svc.Answer(call.ID, 2)
	require.NoError(t, err)

	caller := newCallTestRouter(t, svc, 1)
	w := httptest.NewRecorder()
	caller.ServeHTTP(w, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/calls/%d/end", call.ID), nil))

	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	var got models.Call
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, domain.CallStatusEnded, got.Status)
}

func TestCallRoutes_Errors(t *testing.T) {
	svc, call := newRingingCall(t)

	t.Run("unknown call is 404", func(t *testing.T) {
		r := newCallTestRouter(t, svc, 2)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/calls/999/answer", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("caller answering is 403", func(t *testing.T) {
		r := newCallTestRouter(t, svc, 1)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/calls/%d/answer", call.ID), nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("malformed id is 400", func(t *testing.T) {
		r := newCallTestRouter(t, svc, 2)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/calls/abc/answer", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("terminal call answer is 409", func(t *testing.T) {
		r := newCallTestRouter(t, svc, 2)
		_, err := svc.Decline(call.ID, 2)
		require.NoError(t, err)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/calls/%d/answer", call.ID), nil))
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

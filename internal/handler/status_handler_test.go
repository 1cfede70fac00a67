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

type memStatusStore struct {
	mu       sync.Mutex
	nextID   uint
	statuses map[uint]*models.Status
	views    map[[2]uint]models.StatusView
}

func newMemStatusStore() *memStatusStore {
	return &memStatusStore{
		nextID:   1,
		statuses: make(map[uint]*models.Status),
		views:    make(map[[2]uint]models.StatusView),
	}
}

func (m *memStatusStore) Create(s *models.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.nextID
	m.nextID++
	cp := *s
	m.statuses[s.ID] = &cp
	return nil
}

func (m *memStatusStore) GetByID(id uint) (*models.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.statuses[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStatusStore) CreateView(v *models.StatusView) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]uint{v.StatusID, v.ViewerID}
	if _, ok := m.views[key]; ok {
		return false, nil
	}
	m.views[key] = *v
	return true, nil
}

func (m *memStatusStore) IncrementViews(statusID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.statuses[statusID]; ok {
		s.ViewsCount++
	}
	return nil
}

func (m *memStatusStore) ListViews(statusID uint) ([]models.StatusView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.StatusView
	for key, v := range m.views {
		if key[0] == statusID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memStatusStore) ListActiveForUsers(userIDs []uint, now time.Time) ([]models.Status, error) {
	return nil, nil
}

func (m *memStatusStore) DeleteExpired(before time.Time) (int64, error) { return 0, nil }

func (m *memStatusStore) expire(statusID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[statusID].ExpiresAt = time.Now().Add(-time.Minute)
}

// newStatusTestRouter registers the status routes with the same path patterns
// the real router uses.
func newStatusTestRouter(t *testing.T, svc *service.StatusService, asUserID uint) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewStatusHandler(svc, nil, nil, nil)

	r := gin.New()
	statuses := r.Group("/api/v1/statuses")
	statuses.Use(func(c *gin.Context) {
		c.Set("user_id", asUserID)
		c.Set("username", fmt.Sprintf("user%d", asUserID))
	})
	statuses.POST("/:id/view", h.MarkViewed)
	statuses.GET("/:id/viewers", h.Viewers)
	return r
}

func TestStatusRoutes_MarkViewed(t *testing.T) {
	store := newMemStatusStore()
	svc := service.NewStatusService(store, 24*time.Hour)
	st, err := svc.Post(1, "https://cdn/s.jpg", "")
	require.NoError(t, err)
	viewer := newStatusTestRouter(t, svc, 2)

	viewURL := fmt.Sprintf("/api/v1/statuses/%d/view", st.ID)

	w := httptest.NewRecorder()
	viewer.ServeHTTP(w, httptest.NewRequest(http.MethodPost, viewURL, nil))
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	var resp struct {
		IsNewView bool `json:"is_new_view"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsNewView)

	t.Run("repeat view is not new", func(t *testing.T) {
		w := httptest.NewRecorder()
		viewer.ServeHTTP(w, httptest.NewRequest(http.MethodPost, viewURL, nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.IsNewView)
	})

	t.Run("unknown status is 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		viewer.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/statuses/999/view", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id is 400", func(t *testing.T) {
		w := httptest.NewRecorder()
		viewer.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/statuses/abc/view", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("expired status is 410", func(t *testing.T) {
		store.expire(st.ID)
		other := newStatusTestRouter(t, svc, 3)
		w := httptest.NewRecorder()
		other.ServeHTTP(w, httptest.NewRequest(http.MethodPost, viewURL, nil))
		assert.Equal(t, http.StatusGone, w.Code)
	})
}

func TestStatusRoutes_Viewers(t *testing.T) {
	store := newMemStatusStore()
	svc := service.NewStatusService(store, 24*time.Hour)
	st, err := svc.Post(1, "https://cdn/s.jpg", "")
	require.NoError(t, err)
	_, err = svc.RecordView(st.ID, 2)
	require.NoError(t, err)

	viewersURL := fmt.Sprintf("/api/v1/statuses/%d/viewers", st.ID)

	t.Run("owner lists viewers", func(t *testing.T) {
		owner := newStatusTestRouter(t, svc, 1)
		w := httptest.NewRecorder()
		owner.ServeHTTP(w, httptest.NewRequest(http.MethodGet, viewersURL, nil))
		require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
		var views []models.StatusView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
		assert.Len(t, views, 1)
	})

	t.Run("non-owner is 403", func(t *testing.T) {
		viewer := newStatusTestRouter(t, svc, 2)
		w := httptest.NewRecorder()
		viewer.ServeHTTP(w, httptest.NewRequest(http.MethodGet, viewersURL, nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

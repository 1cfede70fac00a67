package service

import (
	"errors"
	"time"

	"chatline/internal/domain"
	"chatline/internal/models"

	"gorm.io/gorm"
)

// StatusStore persists ephemeral statuses and their view records. CreateView
// must be duplicate-safe: the (status, viewer) unique constraint decides
// which concurrent call created the row.
type StatusStore interface {
	Create(s *models.Status) error
	GetByID(id uint) (*models.Status, error)
	CreateView(v *models.StatusView) (bool, error)
	IncrementViews(statusID uint) error
	ListViews(statusID uint) ([]models.StatusView, error)
	ListActiveForUsers(userIDs []uint, now time.Time) ([]models.Status, error)
	DeleteExpired(before time.Time) (int64, error)
}

// StatusService tracks expiry of time-boxed content and deduplicates viewer
// events.
type StatusService struct {
	store StatusStore
	ttl   time.Duration
}

func NewStatusService(store StatusStore, ttl time.Duration) *StatusService {
	return &StatusService{store: store, ttl: ttl}
}

// Post creates a status expiring a fixed TTL from now.
func (s *StatusService) Post(ownerID uint, mediaURL, caption string) (*models.Status, error) {
	status := models.NewStatus(ownerID, mediaURL, caption, s.ttl)
	if err := s.store.Create(status); err != nil {
		return nil, err
	}
	return status, nil
}

// RecordView marks the status seen by the viewer. The first call per
// (status, viewer) creates the view row and bumps the counter; any repeat is
// an idempotent no-op returning false. Viewing one's own status is not
// recorded. A status past its expiry fails with ErrExpired even if the row
// has not been purged yet.
func (s *StatusService) RecordView(statusID, viewerID uint) (bool, error) {
	status, err := s.store.GetByID(statusID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, domain.ErrNotFound) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	if status.UserID == viewerID {
		return false, nil
	}
	if status.Expired(time.Now()) {
		return false, domain.ErrExpired
	}
	created, err := s.store.CreateView(&models.StatusView{
		StatusID: statusID,
		ViewerID: viewerID,
		ViewedAt: time.Now(),
	})
	if err != nil {
		return false, err
	}
	if created {
		if err := s.store.IncrementViews(statusID); err != nil {
			return true, err
		}
	}
	return created, nil
}

// Viewers lists who saw the status. Owner-only.
func (s *StatusService) Viewers(statusID, requestorID uint) ([]models.StatusView, error) {
	status, err := s.store.GetByID(statusID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if status.UserID != requestorID {
		return nil, domain.ErrForbidden
	}
	return s.store.ListViews(statusID)
}

// Feed returns the requesting user's own unexpired statuses plus those of
// everyone sharing a chat with them.
func (s *StatusService) Feed(userID uint, contactIDs []uint) ([]models.Status, error) {
	owners := append([]uint{userID}, contactIDs...)
	return s.store.ListActiveForUsers(owners, time.Now())
}

// PurgeExpired physically deletes dead statuses. Invoked by the scheduler.
func (s *StatusService) PurgeExpired() (int64, error) {
	return s.store.DeleteExpired(time.Now())
}

// TTL exposes the configured lifetime for API responses.
func (s *StatusService) TTL() time.Duration { return s.ttl }

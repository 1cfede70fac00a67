package repository

import (
	"time"

	"chatline/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StatusRepository struct {
	db *gorm.DB
}

func NewStatusRepository(db *gorm.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

func (r *StatusRepository) Create(s *models.Status) error {
	return r.db.Create(s).Error
}

func (r *StatusRepository) GetByID(id uint) (*models.Status, error) {
	var s models.Status
	if err := r.db.First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateView inserts the (status, viewer) row, relying on the composite
// unique index to swallow duplicates. Returns whether this call created the
// row, which is what drives the view counter.
func (r *StatusRepository) CreateView(v *models.StatusView) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(v)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *StatusRepository) IncrementViews(statusID uint) error {
	return r.db.Model(&models.Status{}).
		Where("id = ?", statusID).
		UpdateColumn("views_count", gorm.Expr("views_count + 1")).Error
}

func (r *StatusRepository) ListViews(statusID uint) ([]models.StatusView, error) {
	var views []models.StatusView
	err := r.db.Where("status_id = ?", statusID).Order("viewed_at ASC").Find(&views).Error
	return views, err
}

// ListActiveForUsers returns unexpired statuses owned by any of the given
// users, newest first.
func (r *StatusRepository) ListActiveForUsers(userIDs []uint, now time.Time) ([]models.Status, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var statuses []models.Status
	err := r.db.Where("user_id IN ? AND expires_at > ?", userIDs, now).
		Order("created_at DESC").Find(&statuses).Error
	return statuses, err
}

// DeleteExpired purges dead statuses and their view rows. Invoked by the
// scheduler, never implicitly.
func (r *StatusRepository) DeleteExpired(before time.Time) (int64, error) {
	var ids []uint
	if err := r.db.Model(&models.Status{}).
		Where("expires_at <= ?", before).Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := r.db.Where("status_id IN ?", ids).Delete(&models.StatusView{}).Error; err != nil {
		return 0, err
	}
	res := r.db.Where("id IN ?", ids).Delete(&models.Status{})
	return res.RowsAffected, res.Error
}

package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pingkeep/pingkeep/internal/models"
	"github.com/pingkeep/pingkeep/internal/storage"
)

// Store implements storage.Store on a GORM postgres connection.
type Store struct {
	db *gorm.DB
}

// New creates a postgres-backed store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *Store) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

func (s *Store) CreateURL(ctx context.Context, url *models.MonitoredURL) error {
	return s.db.WithContext(ctx).Create(url).Error
}

func (s *Store) GetURLByID(ctx context.Context, id int) (*models.MonitoredURL, error) {
	var url models.MonitoredURL
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&url).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &url, nil
}

func (s *Store) ListActiveURLsByOwner(ctx context.Context, ownerID int) ([]models.MonitoredURL, error) {
	var urls []models.MonitoredURL
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", ownerID, true).
		Order("created_at DESC").
		Find(&urls).Error
	return urls, err
}

func (s *Store) ListActiveURLs(ctx context.Context) ([]models.MonitoredURL, error) {
	var urls []models.MonitoredURL
	err := s.db.WithContext(ctx).Where("active = ?", true).Find(&urls).Error
	return urls, err
}

func (s *Store) UpdateURL(ctx context.Context, url *models.MonitoredURL) error {
	result := s.db.WithContext(ctx).Model(&models.MonitoredURL{}).
		Where("id = ?", url.ID).
		Updates(map[string]interface{}{
			"name":             url.Name,
			"description":      url.Description,
			"interval_minutes": url.IntervalMinutes,
			"active":           url.Active,
			"updated_at":       url.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) SoftDeleteURL(ctx context.Context, id int) error {
	result := s.db.WithContext(ctx).Model(&models.MonitoredURL{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"active": false, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) InsertCheck(ctx context.Context, check *models.CheckRecord) error {
	return s.db.WithContext(ctx).Create(check).Error
}

func (s *Store) ListChecksSince(ctx context.Context, urlID int, since time.Time) ([]models.CheckRecord, error) {
	var checks []models.CheckRecord
	err := s.db.WithContext(ctx).
		Where("url_id = ? AND checked_at >= ?", urlID, since).
		Order("checked_at DESC, id ASC").
		Find(&checks).Error
	return checks, err
}

func (s *Store) ListRecentChecks(ctx context.Context, urlID int, limit int) ([]models.CheckRecord, error) {
	var checks []models.CheckRecord
	err := s.db.WithContext(ctx).
		Where("url_id = ?", urlID).
		Order("checked_at DESC, id ASC").
		Limit(limit).
		Find(&checks).Error
	return checks, err
}

func (s *Store) LatestCheckTimes(ctx context.Context) (map[int]time.Time, error) {
	rows, err := s.db.WithContext(ctx).Raw(`
		SELECT url_id, MAX(checked_at) AS last_checked
		FROM url_checks
		GROUP BY url_id
	`).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	latest := make(map[int]time.Time)
	for rows.Next() {
		var urlID int
		var checkedAt time.Time
		if err := rows.Scan(&urlID, &checkedAt); err != nil {
			return nil, err
		}
		latest[urlID] = checkedAt
	}
	return latest, rows.Err()
}

func (s *Store) DeleteChecksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("checked_at < ?", cutoff).
		Delete(&models.CheckRecord{})
	return result.RowsAffected, result.Error
}

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pingkeep/pingkeep/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence boundary the engine talks through: user lookup,
// the mutable URL registry, and the append-only check history.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)

	// Monitored URLs
	CreateURL(ctx context.Context, url *models.MonitoredURL) error
	GetURLByID(ctx context.Context, id int) (*models.MonitoredURL, error)
	ListActiveURLsByOwner(ctx context.Context, ownerID int) ([]models.MonitoredURL, error)
	ListActiveURLs(ctx context.Context) ([]models.MonitoredURL, error)
	UpdateURL(ctx context.Context, url *models.MonitoredURL) error
	SoftDeleteURL(ctx context.Context, id int) error

	// Check records (append-only)
	InsertCheck(ctx context.Context, check *models.CheckRecord) error
	ListChecksSince(ctx context.Context, urlID int, since time.Time) ([]models.CheckRecord, error)
	ListRecentChecks(ctx context.Context, urlID int, limit int) ([]models.CheckRecord, error)
	LatestCheckTimes(ctx context.Context) (map[int]time.Time, error)
	DeleteChecksBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

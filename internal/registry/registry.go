package registry

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/pingkeep/pingkeep/internal/models"
	"github.com/pingkeep/pingkeep/internal/storage"
)

// DefaultIntervalMinutes applies when a URL is created without an interval.
const DefaultIntervalMinutes = 5

var (
	// ErrInvalidTarget means the target is not an absolute http(s) URL.
	ErrInvalidTarget = errors.New("target must be an absolute http or https URL")
	// ErrInvalidInterval means the interval is not a positive number of minutes.
	ErrInvalidInterval = errors.New("interval must be at least 1 minute")
	// ErrNotOwner means the caller does not own the referenced URL.
	ErrNotOwner = errors.New("url belongs to another user")
)

// Service manages the per-user set of monitored URLs. All operations are
// scoped to an owner; touching another user's URL is an authorization
// failure, distinct from not-found.
type Service struct {
	store storage.Store
}

// New creates a registry Service on the given store.
func New(store storage.Store) *Service {
	return &Service{store: store}
}

// CreateParams are the user-supplied fields for a new monitored URL.
// IntervalMinutes of zero means "not provided" and takes the default.
type CreateParams struct {
	Target          string `json:"url"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	IntervalMinutes int    `json:"interval_minutes"`
}

// UpdateParams are the mutable fields of a monitored URL. Nil fields are
// left unchanged.
type UpdateParams struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	IntervalMinutes *int    `json:"interval_minutes"`
	Active          *bool   `json:"active"`
}

// Create validates and registers a new URL for ownerID.
func (s *Service) Create(ctx context.Context, ownerID int, params CreateParams) (*models.MonitoredURL, error) {
	if err := validateTarget(params.Target); err != nil {
		return nil, err
	}

	interval := params.IntervalMinutes
	if interval == 0 {
		interval = DefaultIntervalMinutes
	}
	if interval < 1 {
		return nil, ErrInvalidInterval
	}

	now := time.Now()
	u := &models.MonitoredURL{
		UserID:          ownerID,
		Target:          params.Target,
		Name:            params.Name,
		Description:     params.Description,
		IntervalMinutes: interval,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateURL(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ListActive returns ownerID's active URLs, newest first. Soft-deleted
// URLs are excluded.
func (s *Service) ListActive(ctx context.Context, ownerID int) ([]models.MonitoredURL, error) {
	return s.store.ListActiveURLsByOwner(ctx, ownerID)
}

// Get fetches one URL and verifies ownerID owns it.
func (s *Service) Get(ctx context.Context, ownerID, id int) (*models.MonitoredURL, error) {
	u, err := s.store.GetURLByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.UserID != ownerID {
		return nil, ErrNotOwner
	}
	return u, nil
}

// Update applies the provided fields to a URL owned by ownerID.
func (s *Service) Update(ctx context.Context, ownerID, id int, params UpdateParams) (*models.MonitoredURL, error) {
	u, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		u.Name = *params.Name
	}
	if params.Description != nil {
		u.Description = *params.Description
	}
	if params.IntervalMinutes != nil {
		if *params.IntervalMinutes < 1 {
			return nil, ErrInvalidInterval
		}
		u.IntervalMinutes = *params.IntervalMinutes
	}
	if params.Active != nil {
		u.Active = *params.Active
	}
	u.UpdatedAt = time.Now()

	if err := s.store.UpdateURL(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SoftDelete marks a URL inactive. The row and its check history are kept,
// and deleting an already-inactive URL is not an error.
func (s *Service) SoftDelete(ctx context.Context, ownerID, id int) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	return s.store.SoftDeleteURL(ctx, id)
}

func validateTarget(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return ErrInvalidTarget
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidTarget
	}
	return nil
}

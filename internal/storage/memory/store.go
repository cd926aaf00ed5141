package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pingkeep/pingkeep/internal/models"
	"github.com/pingkeep/pingkeep/internal/storage"
)

// Store is an in-memory storage.Store. It backs the test suites and keeps
// the same ordering guarantees as the postgres implementation.
type Store struct {
	mu     sync.RWMutex
	users  map[int]models.User
	urls   map[int]models.MonitoredURL
	checks map[int][]models.CheckRecord

	nextUserID  int
	nextURLID   int
	nextCheckID int

	// FailInserts makes InsertCheck return this error, for storage-failure tests.
	FailInserts error
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:       make(map[int]models.User),
		urls:        make(map[int]models.MonitoredURL),
		checks:      make(map[int][]models.CheckRecord),
		nextUserID:  1,
		nextURLID:   1,
		nextCheckID: 1,
	}
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.ID = s.nextUserID
	s.nextUserID++
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, storage.ErrNotFound
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

func (s *Store) CreateURL(ctx context.Context, url *models.MonitoredURL) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	url.ID = s.nextURLID
	s.nextURLID++
	s.urls[url.ID] = *url
	return nil
}

func (s *Store) GetURLByID(ctx context.Context, id int) (*models.MonitoredURL, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.urls[id]; ok {
		return &u, nil
	}
	return nil, storage.ErrNotFound
}

func (s *Store) ListActiveURLsByOwner(ctx context.Context, ownerID int) ([]models.MonitoredURL, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var urls []models.MonitoredURL
	for _, u := range s.urls {
		if u.UserID == ownerID && u.Active {
			urls = append(urls, u)
		}
	}
	sort.Slice(urls, func(i, j int) bool {
		if urls[i].CreatedAt.Equal(urls[j].CreatedAt) {
			return urls[i].ID > urls[j].ID
		}
		return urls[i].CreatedAt.After(urls[j].CreatedAt)
	})
	return urls, nil
}

func (s *Store) ListActiveURLs(ctx context.Context) ([]models.MonitoredURL, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var urls []models.MonitoredURL
	for _, u := range s.urls {
		if u.Active {
			urls = append(urls, u)
		}
	}
	sort.Slice(urls, func(i, j int) bool { return urls[i].ID < urls[j].ID })
	return urls, nil
}

func (s *Store) UpdateURL(ctx context.Context, url *models.MonitoredURL) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.urls[url.ID]
	if !ok {
		return storage.ErrNotFound
	}
	existing.Name = url.Name
	existing.Description = url.Description
	existing.IntervalMinutes = url.IntervalMinutes
	existing.Active = url.Active
	existing.UpdatedAt = url.UpdatedAt
	s.urls[url.ID] = existing
	return nil
}

func (s *Store) SoftDeleteURL(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.urls[id]
	if !ok {
		return storage.ErrNotFound
	}
	existing.Active = false
	existing.UpdatedAt = time.Now()
	s.urls[id] = existing
	return nil
}

func (s *Store) InsertCheck(ctx context.Context, check *models.CheckRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailInserts != nil {
		return s.FailInserts
	}

	check.ID = s.nextCheckID
	s.nextCheckID++
	s.checks[check.URLID] = append(s.checks[check.URLID], *check)
	return nil
}

func (s *Store) ListChecksSince(ctx context.Context, urlID int, since time.Time) ([]models.CheckRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	checks := make([]models.CheckRecord, 0)
	for _, c := range s.checks[urlID] {
		if !c.CheckedAt.Before(since) {
			checks = append(checks, c)
		}
	}
	sortChecks(checks)
	return checks, nil
}

func (s *Store) ListRecentChecks(ctx context.Context, urlID int, limit int) ([]models.CheckRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	checks := make([]models.CheckRecord, len(s.checks[urlID]))
	copy(checks, s.checks[urlID])
	sortChecks(checks)
	if len(checks) > limit {
		checks = checks[:limit]
	}
	return checks, nil
}

func (s *Store) LatestCheckTimes(ctx context.Context) (map[int]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[int]time.Time)
	for urlID, checks := range s.checks {
		for _, c := range checks {
			if c.CheckedAt.After(latest[urlID]) {
				latest[urlID] = c.CheckedAt
			}
		}
	}
	return latest, nil
}

func (s *Store) DeleteChecksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for urlID, checks := range s.checks {
		kept := checks[:0]
		for _, c := range checks {
			if c.CheckedAt.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, c)
		}
		s.checks[urlID] = kept
	}
	return removed, nil
}

// sortChecks orders most recent first, ties broken by id ascending.
func sortChecks(checks []models.CheckRecord) {
	sort.SliceStable(checks, func(i, j int) bool {
		if checks[i].CheckedAt.Equal(checks[j].CheckedAt) {
			return checks[i].ID < checks[j].ID
		}
		return checks[i].CheckedAt.After(checks[j].CheckedAt)
	})
}

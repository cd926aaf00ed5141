package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pingkeep/pingkeep/internal/models"
	"github.com/pingkeep/pingkeep/internal/storage"
	"github.com/pingkeep/pingkeep/internal/storage/memory"
)

func TestCreateDefaultsInterval(t *testing.T) {
	svc := New(memory.New())

	u, err := svc.Create(context.Background(), 1, CreateParams{Target: "https://example.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if u.IntervalMinutes != DefaultIntervalMinutes {
		t.Errorf("expected default interval %d, got %d", DefaultIntervalMinutes, u.IntervalMinutes)
	}
	if !u.Active {
		t.Error("expected new URL to be active")
	}
}

func TestCreateListRoundTrip(t *testing.T) {
	svc := New(memory.New())
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateParams{
		Target:          "https://example.com/health",
		Name:            "example",
		IntervalMinutes: 15,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	urls, err := svc.ListActive(ctx, 1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(urls) != 1 {
		t.Fatalf("expected 1 url, got %d", len(urls))
	}
	if urls[0].ID != created.ID || urls[0].IntervalMinutes != 15 {
		t.Errorf("round trip mismatch: %+v", urls[0])
	}
}

func TestCreateRejectsInvalidTarget(t *testing.T) {
	svc := New(memory.New())
	ctx := context.Background()

	for _, target := range []string{"", "not-a-url", "ftp://example.com", "http://", "/relative/path"} {
		_, err := svc.Create(ctx, 1, CreateParams{Target: target})
		if !errors.Is(err, ErrInvalidTarget) {
			t.Errorf("target %q: expected ErrInvalidTarget, got %v", target, err)
		}
	}
}

func TestCreateRejectsNegativeInterval(t *testing.T) {
	svc := New(memory.New())

	_, err := svc.Create(context.Background(), 1, CreateParams{
		Target:          "https://example.com",
		IntervalMinutes: -3,
	})
	if !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestListActiveOrderedNewestFirst(t *testing.T) {
	svc := New(memory.New())
	ctx := context.Background()

	var ids []int
	for _, target := range []string{"https://a.example.com", "https://b.example.com", "https://c.example.com"} {
		u, err := svc.Create(ctx, 1, CreateParams{Target: target})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		ids = append(ids, u.ID)
		time.Sleep(time.Millisecond)
	}

	urls, err := svc.ListActive(ctx, 1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(urls) != 3 {
		t.Fatalf("expected 3 urls, got %d", len(urls))
	}
	for i := range urls {
		if want := ids[len(ids)-1-i]; urls[i].ID != want {
			t.Errorf("position %d: expected id %d, got %d", i, want, urls[i].ID)
		}
	}
}

func TestSoftDeleteIdempotent(t *testing.T) {
	store := memory.New()
	svc := New(store)
	ctx := context.Background()

	u, err := svc.Create(ctx, 1, CreateParams{Target: "https://example.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	check := &models.CheckRecord{URLID: u.ID, Success: true, CheckedAt: time.Now()}
	if err := store.InsertCheck(ctx, check); err != nil {
		t.Fatalf("insert check failed: %v", err)
	}

	if err := svc.SoftDelete(ctx, 1, u.ID); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	if err := svc.SoftDelete(ctx, 1, u.ID); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}

	urls, _ := svc.ListActive(ctx, 1)
	if len(urls) != 0 {
		t.Errorf("expected deleted URL to be excluded from listing, got %d urls", len(urls))
	}

	got, err := svc.Get(ctx, 1, u.ID)
	if err != nil {
		t.Fatalf("get after delete failed: %v", err)
	}
	if got.Active {
		t.Error("expected URL to be inactive after delete")
	}

	// History survives the soft-delete
	checks, err := store.ListChecksSince(ctx, u.ID, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("list checks failed: %v", err)
	}
	if len(checks) != 1 {
		t.Errorf("expected check history to be retained, got %d checks", len(checks))
	}
}

func TestCrossOwnerAccessIsAuthorizationFailure(t *testing.T) {
	svc := New(memory.New())
	ctx := context.Background()

	u, err := svc.Create(ctx, 1, CreateParams{Target: "https://example.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Get(ctx, 2, u.ID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("get: expected ErrNotOwner, got %v", err)
	}

	name := "renamed"
	if _, err := svc.Update(ctx, 2, u.ID, UpdateParams{Name: &name}); !errors.Is(err, ErrNotOwner) {
		t.Errorf("update: expected ErrNotOwner, got %v", err)
	}

	if err := svc.SoftDelete(ctx, 2, u.ID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("delete: expected ErrNotOwner, got %v", err)
	}
}

func TestGetMissingURLIsNotFound(t *testing.T) {
	svc := New(memory.New())

	_, err := svc.Get(context.Background(), 1, 42)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRejectsInvalidInterval(t *testing.T) {
	svc := New(memory.New())
	ctx := context.Background()

	u, err := svc.Create(ctx, 1, CreateParams{Target: "https://example.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	zero := 0
	if _, err := svc.Update(ctx, 1, u.ID, UpdateParams{IntervalMinutes: &zero}); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval for 0, got %v", err)
	}

	fifteen := 15
	updated, err := svc.Update(ctx, 1, u.ID, UpdateParams{IntervalMinutes: &fifteen})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.IntervalMinutes != 15 {
		t.Errorf("expected interval 15, got %d", updated.IntervalMinutes)
	}
}

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type courseSnapshot struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestCacheHelper_SetGet(t *testing.T) {
	mr, client := setupRedis(t)
	helper := NewCacheHelper(client, "course:")
	ctx := context.Background()

	if err := helper.Set(ctx, "id:c1", courseSnapshot{ID: "c1", Status: "Activo"}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !mr.Exists("course:id:c1") {
		t.Fatal("expected prefixed key in redis")
	}

	var got courseSnapshot
	if err := helper.Get(ctx, "id:c1", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != "Activo" {
		t.Errorf("Status = %q, want Activo", got.Status)
	}

	if err := helper.Get(ctx, "id:missing", &got); !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("expected ErrCacheNotFound, got %v", err)
	}
}

func TestCacheHelper_Disabled(t *testing.T) {
	helper := NewCacheHelper(nil, "course:")
	ctx := context.Background()

	if helper.Enabled() {
		t.Fatal("helper without client should be disabled")
	}
	if err := helper.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Errorf("Set() on disabled cache should be a no-op, got %v", err)
	}
	var dest string
	if err := helper.Get(ctx, "k", &dest); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("expected ErrCacheNotAvailable, got %v", err)
	}
	if err := helper.InvalidatePattern(ctx, "*"); err != nil {
		t.Errorf("InvalidatePattern() on disabled cache = %v", err)
	}
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()
	dashboards := NewCacheHelper(client, "dashboard:")
	courses := NewCacheHelper(client, "course:")

	for _, email := range []string{"a@x.edu", "b@x.edu", "c@x.edu"} {
		if err := dashboards.Set(ctx, DashboardKey(email), map[string]int{"courses": 1}, time.Minute); err != nil {
			t.Fatal(err)
		}
	}
	if err := courses.Set(ctx, CourseKey("c1"), courseSnapshot{ID: "c1"}, time.Minute); err != nil {
		t.Fatal(err)
	}

	if err := dashboards.InvalidatePattern(ctx, "*"); err != nil {
		t.Fatalf("InvalidatePattern() error = %v", err)
	}

	if mr.Exists("dashboard:email:a@x.edu") {
		t.Error("dashboard keys should be gone")
	}
	if !mr.Exists("course:id:c1") {
		t.Error("keys under another prefix must survive")
	}
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	mr, client := setupRedis(t)
	helper := NewCacheHelper(client, "course:")
	ctx := context.Background()
	calls := 0

	fetch := func() (any, error) {
		calls++
		return &courseSnapshot{ID: "c1", Status: "Borrador"}, nil
	}

	var first courseSnapshot
	if err := helper.CacheOrExecute(ctx, "id:c1", &first, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute() error = %v", err)
	}
	if first.Status != "Borrador" || calls != 1 {
		t.Fatalf("first = %+v calls = %d", first, calls)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !mr.Exists("course:id:c1") {
		if time.Now().After(deadline) {
			t.Fatal("background cache write never happened")
		}
		time.Sleep(10 * time.Millisecond)
	}

	var second courseSnapshot
	if err := helper.CacheOrExecute(ctx, "id:c1", &second, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
	if second.ID != "c1" {
		t.Errorf("second = %+v", second)
	}
}

func TestCacheHelper_CacheOrExecuteFetchError(t *testing.T) {
	helper := NewCacheHelper(nil, "course:")
	boom := errors.New("db down")

	var dest courseSnapshot
	err := helper.CacheOrExecute(context.Background(), "id:c1", &dest, time.Minute, func() (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected fetch error to propagate, got %v", err)
	}
}

func TestCacheManager_HealthCheck(t *testing.T) {
	_, client := setupRedis(t)

	if err := NewCacheManager(client).HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if err := NewCacheManager(nil).HealthCheck(context.Background()); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("expected ErrCacheNotAvailable without client, got %v", err)
	}
}

package rediscache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"slotwise/backend/internal/domain"
)

type fakeRedis struct {
	data   map[string]string
	getErr error
	setErr error
	ttls   map[string]time.Duration
	dels   []string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, exp time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	b, _ := value.([]byte)
	f.data[key] = string(b)
	f.ttls[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	f.dels = append(f.dels, keys...)
	return redis.NewIntResult(int64(len(keys)), nil)
}

type fakeSettingsStore struct {
	getFn  func(ctx context.Context, org string) (domain.OrganizationSettings, error)
	saveFn func(ctx context.Context, s domain.OrganizationSettings) (domain.OrganizationSettings, error)
	gets   int
}

func (f *fakeSettingsStore) GetSettings(ctx context.Context, org string) (domain.OrganizationSettings, error) {
	f.gets++
	if f.getFn != nil {
		return f.getFn(ctx, org)
	}
	return domain.DefaultSettings(org), nil
}

func (f *fakeSettingsStore) SaveSettings(ctx context.Context, s domain.OrganizationSettings) (domain.OrganizationSettings, error) {
	if f.saveFn != nil {
		return f.saveFn(ctx, s)
	}
	return s, nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestSettingsCache_ReadThrough(t *testing.T) {
	rdb := newFakeRedis()
	next := &fakeSettingsStore{getFn: func(_ context.Context, org string) (domain.OrganizationSettings, error) {
		s := domain.DefaultSettings(org)
		s.HistoryLockDays = 14
		return s, nil
	}}
	c := NewSettingsCache(next, rdb, 5*time.Minute, discard())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s, err := c.GetSettings(ctx, "org-1")
		if err != nil {
			t.Fatalf("GetSettings error: %v", err)
		}
		if s.HistoryLockDays != 14 {
			t.Fatalf("HistoryLockDays = %d, want 14", s.HistoryLockDays)
		}
		if w := s.WorkingHours[1]; w.Open != domain.NewClock(9, 0) || w.Close != domain.NewClock(18, 0) {
			t.Fatalf("monday hours = %+v", w)
		}
	}
	if next.gets != 1 {
		t.Fatalf("store reads = %d, want 1", next.gets)
	}
	if ttl := rdb.ttls["slotwise:settings:org-1"]; ttl != 5*time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}
}

func TestSettingsCache_SaveInvalidates(t *testing.T) {
	rdb := newFakeRedis()
	next := &fakeSettingsStore{}
	c := NewSettingsCache(next, rdb, time.Minute, discard())
	ctx := context.Background()

	if _, err := c.GetSettings(ctx, "org-1"); err != nil {
		t.Fatalf("GetSettings error: %v", err)
	}
	s := domain.DefaultSettings("org-1")
	s.HistoryLockDays = 3
	if _, err := c.SaveSettings(ctx, s); err != nil {
		t.Fatalf("SaveSettings error: %v", err)
	}
	if _, ok := rdb.data["slotwise:settings:org-1"]; ok {
		t.Fatalf("cached entry survived save")
	}
	if len(rdb.dels) != 1 {
		t.Fatalf("dels = %v", rdb.dels)
	}
}

func TestSettingsCache_SaveFailureKeepsCache(t *testing.T) {
	rdb := newFakeRedis()
	rdb.data["slotwise:settings:org-1"] = `{"organizationId":"org-1"}`
	next := &fakeSettingsStore{saveFn: func(context.Context, domain.OrganizationSettings) (domain.OrganizationSettings, error) {
		return domain.OrganizationSettings{}, errors.New("db down")
	}}
	c := NewSettingsCache(next, rdb, time.Minute, discard())

	if _, err := c.SaveSettings(context.Background(), domain.DefaultSettings("org-1")); err == nil {
		t.Fatalf("expected error")
	}
	if len(rdb.dels) != 0 {
		t.Fatalf("invalidated on failed save")
	}
}

func TestSettingsCache_FallsThroughOnRedisErrors(t *testing.T) {
	tests := []struct {
		name   string
		seed   string
		getErr error
		setErr error
	}{
		{name: "read error", getErr: errors.New("connection refused")},
		{name: "write error", setErr: errors.New("readonly")},
		{name: "corrupt entry", seed: "{not json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rdb := newFakeRedis()
			rdb.getErr, rdb.setErr = tt.getErr, tt.setErr
			if tt.seed != "" {
				rdb.data["slotwise:settings:org-1"] = tt.seed
			}
			next := &fakeSettingsStore{}
			c := NewSettingsCache(next, rdb, time.Minute, discard())

			s, err := c.GetSettings(context.Background(), "org-1")
			if err != nil {
				t.Fatalf("GetSettings error: %v", err)
			}
			if s.OrganizationID != "org-1" || next.gets != 1 {
				t.Fatalf("settings = %+v, store reads = %d", s, next.gets)
			}
		})
	}
}

func TestSettingsCache_StoreErrorPropagates(t *testing.T) {
	want := errors.New("boom")
	next := &fakeSettingsStore{getFn: func(context.Context, string) (domain.OrganizationSettings, error) {
		return domain.OrganizationSettings{}, want
	}}
	c := NewSettingsCache(next, newFakeRedis(), time.Minute, discard())
	if _, err := c.GetSettings(context.Background(), "org-1"); !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joelkehle/macro-onboarding/internal/config"
	"github.com/joelkehle/macro-onboarding/internal/llm"
	"github.com/joelkehle/macro-onboarding/internal/onboarding"
)

func sampleRecord(id string) Record {
	profile := onboarding.MetabolicProfile{BMR: 1780, TDEE: 2759, DailyCalorieTarget: 2359, ProteinG: 162, CarbsG: 269.6, FatsG: 65.5, EstimatedDaysToGoal: 140}
	return Record{
		ID: id,
		Session: onboarding.Session{
			History: []llm.Message{
				{Role: llm.RoleAssistant, Content: "What's your gender?"},
				{Role: llm.RoleUser, Content: "male"},
			},
			Data: onboarding.CollectedData{
				Fields: onboarding.Fields{
					Gender: onboarding.GenderMale, CurrentWeight: 90, CurrentWeightUnit: onboarding.UnitKG,
					Dietary: map[string]bool{onboarding.FlagVegan: true},
				},
				MetabolicProfile: &profile,
				DietaryAsked:     true,
			},
		},
	}
}

func exerciseSessionStore(t *testing.T, s SessionStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Put(ctx, Record{}); err == nil {
		t.Fatal("expected error for empty id")
	}

	rec := sampleRecord("s1")
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Session.History) != 2 || got.Session.History[1].Content != "male" {
		t.Fatalf("history not round-tripped: %+v", got.Session.History)
	}
	d := got.Session.Data
	if d.Gender != onboarding.GenderMale || d.CurrentWeight != 90 || !d.Dietary[onboarding.FlagVegan] || !d.DietaryAsked {
		t.Fatalf("data not round-tripped: %+v", d)
	}
	if d.MetabolicProfile == nil || *d.MetabolicProfile != *rec.Session.Data.MetabolicProfile {
		t.Fatalf("profile not round-tripped: %+v", d.MetabolicProfile)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("timestamps not set")
	}

	got.Complete = true
	got.Session.Data.Goal = onboarding.GoalMaintain
	if err := s.Put(ctx, got); err != nil {
		t.Fatalf("Put update: %v", err)
	}
	again, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if !again.Complete || again.Session.Data.Goal != onboarding.GoalMaintain {
		t.Fatalf("update lost: %+v", again)
	}
	if !again.CreatedAt.Equal(got.CreatedAt) {
		t.Fatalf("created_at changed: %v -> %v", got.CreatedAt, again.CreatedAt)
	}

	if err := s.Evict(ctx, "s1"); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if _, err := s.Get(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after evict, got %v", err)
	}
	if err := s.Evict(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second evict: expected ErrNotFound, got %v", err)
	}
}

func exerciseProfileSink(t *testing.T, s ProfileSink) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.GetProfile(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	rec := sampleRecord("p1")
	export := onboarding.FormatExport(rec.Session.Data)
	if err := s.SaveProfile(ctx, "p1", export); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	got, err := s.GetProfile(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got != export {
		t.Fatalf("profile mismatch:\n got  %+v\n want %+v", got, export)
	}

	export.Profile.Goal = onboarding.GoalGainWeight
	if err := s.SaveProfile(ctx, "p1", export); err != nil {
		t.Fatalf("SaveProfile replace: %v", err)
	}
	got, _ = s.GetProfile(ctx, "p1")
	if got.Profile.Goal != onboarding.GoalGainWeight {
		t.Fatalf("replace lost: %+v", got.Profile)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseSessionStore(t, s)
	exerciseProfileSink(t, s)
}

func TestMemoryStoreIsolatesCallers(t *testing.T) {
	s := NewMemoryStore()
	rec := sampleRecord("iso")
	if err := s.Put(context.Background(), rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	rec.Session.Data.Dietary[onboarding.FlagNutFree] = true
	got, _ := s.Get(context.Background(), "iso")
	if got.Session.Data.Dietary[onboarding.FlagNutFree] {
		t.Fatal("store shares state with caller")
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "onboarding.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	exerciseSessionStore(t, s)
	exerciseProfileSink(t, s)
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "onboarding.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := s.Put(context.Background(), sampleRecord("keep")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.Get(context.Background(), "keep"); err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	s, err := NewRedisStore(ctx, RedisOptions{Addr: addr, Prefix: "onboarding:test:" + time.Now().Format("150405.000") + ":", TTL: time.Minute})
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer s.Close()
	exerciseSessionStore(t, s)
}

func TestNewRedisStoreRequiresAddr(t *testing.T) {
	if _, err := NewRedisStore(context.Background(), RedisOptions{}); err == nil {
		t.Fatal("expected missing addr error")
	}
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()
	for _, cfg := range []config.StoreConfig{
		{Driver: config.DriverMemory},
		{Driver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "open.db")},
	} {
		t.Run(cfg.Driver, func(t *testing.T) {
			b, err := Open(ctx, cfg)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer b.Close()
			if err := b.Sessions.Put(ctx, sampleRecord("s1")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if _, err := b.Sessions.Get(ctx, "s1"); err != nil {
				t.Fatalf("Get: %v", err)
			}
			if b.Profiles == nil {
				t.Fatal("expected a profile sink")
			}
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.StoreConfig{Driver: "postgres"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

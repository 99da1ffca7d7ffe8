package repository

import (
	"context"
	"testing"

	"warden/internal/cache"
	"warden/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) PunishmentRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.PunishmentRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	return NewPunishmentRepository(db)
}

const testTarget = "100000000000000001"

func TestAppendAndListOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, reason := range []string{"first", "second", "third"} {
		err := repo.Append(ctx, &models.PunishmentRecord{
			TargetID: testTarget,
			Action:   models.ActionWarn,
			Reason:   reason,
			Issuer:   "200000000000000001",
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	records, err := repo.ListByTarget(ctx, testTarget)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, want := range []string{"first", "second", "third"} {
		if records[i].Reason != want {
			t.Fatalf("record %d: got %q, want %q (log must stay in insertion order)", i, records[i].Reason, want)
		}
	}

	// Other targets see an empty log.
	other, err := repo.ListByTarget(ctx, "100000000000000002")
	if err != nil {
		t.Fatalf("list other: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected empty log, got %d records", len(other))
	}
}

func TestAppendInvalidatesCache(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seed := &models.PunishmentRecord{
		TargetID: testTarget, Action: models.ActionWarn, Reason: "first", Issuer: "2",
	}
	if err := repo.Append(ctx, seed); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Prime the cache.
	if _, err := repo.ListByTarget(ctx, testTarget); err != nil {
		t.Fatalf("list: %v", err)
	}

	if err := repo.Append(ctx, &models.PunishmentRecord{
		TargetID: testTarget, Action: models.ActionBan, Reason: "second", Issuer: "2",
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	records, err := repo.ListByTarget(ctx, testTarget)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("stale cache: expected 2 records, got %d", len(records))
	}
}

func TestDeleteByIndex(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, reason := range []string{"first", "second", "third"} {
		if err := repo.Append(ctx, &models.PunishmentRecord{
			TargetID: testTarget, Action: models.ActionWarn, Reason: reason, Issuer: "2",
		}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	removed, err := repo.DeleteByIndex(ctx, testTarget, 2)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed.Reason != "second" {
		t.Fatalf("expected to remove the second entry, removed %q", removed.Reason)
	}

	records, err := repo.ListByTarget(ctx, testTarget)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 || records[0].Reason != "first" || records[1].Reason != "third" {
		t.Fatalf("unexpected log after delete: %+v", records)
	}
}

func TestDeleteByIndexOutOfRange(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Append(ctx, &models.PunishmentRecord{
		TargetID: testTarget, Action: models.ActionWarn, Reason: "only", Issuer: "2",
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	for _, entry := range []int{0, -1, 2, 99} {
		_, err := repo.DeleteByIndex(ctx, testTarget, entry)
		appErr, ok := err.(*models.AppError)
		if !ok || appErr.Code != "NOT_FOUND" {
			t.Fatalf("entry %d: expected NOT_FOUND, got %v", entry, err)
		}
	}
}

// Package seed provides helpers to create demo punishment data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"warden/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options control how much demo data is generated.
type Options struct {
	Targets          int // distinct target members
	RecordsPerTarget int // punishment records per target
	MaxDays          int // spread of created_at back in time
}

// Factory builds punishment records and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
}

// NewFactory creates a Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	if opts.Targets <= 0 {
		opts.Targets = 10
	}
	if opts.RecordsPerTarget <= 0 {
		opts.RecordsPerTarget = 3
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// snowflake fabricates a plausible 18-digit platform member ID.
func (f *Factory) snowflake() string {
	return fmt.Sprintf("%d%08d", 1000000000+f.rng.Intn(900000000), f.rng.Intn(100000000))
}

var seedActions = []models.ActionKind{models.ActionWarn, models.ActionTimeout, models.ActionBan}

// BuildRecord constructs a punishment record without persisting it.
func (f *Factory) BuildRecord(targetID string) *models.PunishmentRecord {
	action := seedActions[f.rng.Intn(len(seedActions))]
	rec := &models.PunishmentRecord{
		TargetID: targetID,
		Action:   action,
		Reason:   gofakeit.Sentence(6),
		Issuer:   f.snowflake(),
	}
	if action == models.ActionTimeout {
		rec.DurationSeconds = int64((f.rng.Intn(48) + 1) * 3600)
	}

	// realistic created_at spread
	daysBack := f.rng.Intn(f.opts.MaxDays)
	hoursBack := f.rng.Intn(24)
	rec.CreatedAt = time.Now().Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(hoursBack)*time.Hour)
	rec.UpdatedAt = rec.CreatedAt
	return rec
}

// Run seeds the punishment log with demo history.
func (f *Factory) Run() error {
	total := 0
	for i := 0; i < f.opts.Targets; i++ {
		targetID := f.snowflake()
		for j := 0; j < f.opts.RecordsPerTarget; j++ {
			if err := f.db.Create(f.BuildRecord(targetID)).Error; err != nil {
				return fmt.Errorf("seed punishment record: %w", err)
			}
			total++
		}
	}
	log.Printf("seeded %d punishment records across %d targets", total, f.opts.Targets)
	return nil
}

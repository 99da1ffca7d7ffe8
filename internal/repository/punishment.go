// Package repository implements the data access layer for the punishment log.
package repository

import (
	"context"

	"warden/internal/cache"
	"warden/internal/models"

	"gorm.io/gorm"
)

// PunishmentRepository defines persistence operations for the punishment log.
// The log is append-only apart from explicit removal of single entries.
type PunishmentRepository interface {
	Append(ctx context.Context, record *models.PunishmentRecord) error
	ListByTarget(ctx context.Context, targetID string) ([]models.PunishmentRecord, error)
	// DeleteByIndex removes the entry-th record (1-based, ordered by creation)
	// of the target's log and returns it.
	DeleteByIndex(ctx context.Context, targetID string, entry int) (*models.PunishmentRecord, error)
}

type punishmentRepository struct {
	db *gorm.DB
}

// NewPunishmentRepository returns a new PunishmentRepository implementation.
func NewPunishmentRepository(db *gorm.DB) PunishmentRepository {
	return &punishmentRepository{db: db}
}

func (r *punishmentRepository) Append(ctx context.Context, record *models.PunishmentRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePunishments(ctx, record.TargetID)
	return nil
}

func (r *punishmentRepository) ListByTarget(ctx context.Context, targetID string) ([]models.PunishmentRecord, error) {
	var records []models.PunishmentRecord
	key := cache.PunishmentsKey(targetID)

	err := cache.Aside(ctx, key, &records, cache.PunishmentsTTL, func() error {
		if err := r.db.WithContext(ctx).
			Where("target_id = ?", targetID).
			Order("created_at ASC, id ASC").
			Find(&records).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *punishmentRepository) DeleteByIndex(ctx context.Context, targetID string, entry int) (*models.PunishmentRecord, error) {
	if entry < 1 {
		return nil, models.NewNotFoundError("Punishment entry", entry)
	}

	var page []models.PunishmentRecord
	err := r.db.WithContext(ctx).
		Where("target_id = ?", targetID).
		Order("created_at ASC, id ASC").
		Offset(entry - 1).
		Limit(1).
		Find(&page).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(page) == 0 {
		return nil, models.NewNotFoundError("Punishment entry", entry)
	}

	record := page[0]
	if err := r.db.WithContext(ctx).Delete(&models.PunishmentRecord{}, record.ID).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	cache.InvalidatePunishments(ctx, targetID)
	return &record, nil
}

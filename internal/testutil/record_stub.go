package testutil

import (
	"context"
	"sync"
	"time"

	"warden/internal/models"
)

// RecordSinkStub is an in-memory punishment repository for tests.
type RecordSinkStub struct {
	mu      sync.Mutex
	records []models.PunishmentRecord
	nextID  uint

	AppendErr error
}

// NewRecordSinkStub creates an empty in-memory punishment repository.
func NewRecordSinkStub() *RecordSinkStub {
	return &RecordSinkStub{nextID: 1}
}

func (s *RecordSinkStub) Append(_ context.Context, record *models.PunishmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AppendErr != nil {
		return s.AppendErr
	}
	record.ID = s.nextID
	s.nextID++
	record.CreatedAt = time.Now().UTC()
	record.UpdatedAt = record.CreatedAt
	s.records = append(s.records, *record)
	return nil
}

func (s *RecordSinkStub) ListByTarget(_ context.Context, targetID string) ([]models.PunishmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PunishmentRecord
	for _, r := range s.records {
		if r.TargetID == targetID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *RecordSinkStub) DeleteByIndex(_ context.Context, targetID string, entry int) (*models.PunishmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := 0
	for i, r := range s.records {
		if r.TargetID != targetID {
			continue
		}
		idx++
		if idx == entry {
			removed := r
			s.records = append(s.records[:i], s.records[i+1:]...)
			return &removed, nil
		}
	}
	return nil, models.NewNotFoundError("Punishment entry", entry)
}

// All returns a copy of every stored record.
func (s *RecordSinkStub) All() []models.PunishmentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PunishmentRecord, len(s.records))
	copy(out, s.records)
	return out
}

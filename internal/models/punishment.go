// Package models defines persisted records and shared error types.
package models

import "time"

// ActionKind enumerates punitive actions recorded in the punishment log.
type ActionKind string

const (
	ActionBan     ActionKind = "ban"
	ActionTimeout ActionKind = "timeout"
	ActionWarn    ActionKind = "warn"
)

// QuorumIssuer marks records created by a resolved ban-request vote rather
// than a single moderator. The original requester is appended after the colon.
const QuorumIssuer = "quorum"

// PunishmentRecord stores one executed punitive action against a member.
// Target and issuer IDs are platform snowflakes, kept as strings.
type PunishmentRecord struct {
	ID              uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	TargetID        string     `gorm:"index;not null" json:"target_id"`
	Action          ActionKind `gorm:"type:varchar(16);not null" json:"action"`
	DurationSeconds int64      `gorm:"default:0" json:"duration_seconds,omitempty"`
	Reason          string     `gorm:"type:text;default:''" json:"reason"`
	Issuer          string     `gorm:"not null" json:"issuer"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (PunishmentRecord) TableName() string {
	return "punishment_records"
}

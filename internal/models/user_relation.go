package models

import "time"

// RelationStatus is the state of a friendship edge.
type RelationStatus string

const (
	// StatusPending is an outstanding friend request, visible to both
	// sides until the recipient acts on it.
	StatusPending RelationStatus = "pending"

	StatusAccepted RelationStatus = "accepted"
)

// UserRelation is one directed friendship edge. The (from, to) pair is
// the primary key, so at most one edge exists per direction.
type UserRelation struct {
	FromUserID uint           `gorm:"primaryKey"`
	ToUserID   uint           `gorm:"primaryKey"`
	Status     RelationStatus `gorm:"size:20;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	FromUser User `gorm:"foreignKey:FromUserID"`
	ToUser   User `gorm:"foreignKey:ToUserID"`
}

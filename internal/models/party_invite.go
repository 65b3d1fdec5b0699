package models

import "gorm.io/gorm"

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
	InviteCanceled InviteStatus = "canceled"
)

// PartyInvite is a side-channel message asking a user to join a party.
// Conditions are re-validated when the invite is accepted, not when it
// is created.
type PartyInvite struct {
	gorm.Model
	PartyID uint         `gorm:"not null;index"`
	FromID  uint         `gorm:"not null"`
	ToID    uint         `gorm:"not null;index"`
	Status  InviteStatus `gorm:"size:20;not null;default:'pending'"`

	Party Party `gorm:"foreignKey:PartyID"`
	From  User  `gorm:"foreignKey:FromID"`
	To    User  `gorm:"foreignKey:ToID"`
}

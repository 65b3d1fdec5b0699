package models

import "gorm.io/gorm"

// Account roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a player account.
type User struct {
	gorm.Model
	Nickname     string `gorm:"size:255;unique;not null"`
	Email        string `gorm:"size:255;unique;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Role         string `gorm:"size:50;not null;default:'user';index"`

	// A user belongs to at most one party and at most one lobby at a time.
	// Membership is derived from these back-references; there is no
	// separate membership table.
	PartyID        *uint  `gorm:"index"`
	Party          *Party `gorm:"foreignKey:PartyID"`
	CurrentLobbyID *uint  `gorm:"index"`
	CurrentLobby   *Lobby `gorm:"foreignKey:CurrentLobbyID"`

	// PartyJoinedSeq orders members within a party; leader succession
	// promotes the member with the lowest value.
	PartyJoinedSeq uint64 `gorm:"not null;default:0"`
}

package models

import "gorm.io/gorm"

const DefaultPartyMaxSize = 4

// Party represents a persistent group of users that moves between lobbies
// as a single unit.
type Party struct {
	gorm.Model
	LeaderID uint `gorm:"not null"`
	MaxSize  int  `gorm:"not null;default:4"`

	Leader  User   `gorm:"foreignKey:LeaderID"`
	Members []User `gorm:"foreignKey:PartyID"` // Has Many relationship
}

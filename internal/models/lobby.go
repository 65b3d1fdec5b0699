package models

import "gorm.io/gorm"

const DefaultLobbyMaxUsers = 8

// Lobby represents a joinable room where users can gather.
type Lobby struct {
	gorm.Model
	// HostID is nil for hostless lobbies, which have no distinguished host.
	HostID       *uint  `gorm:"index"`
	Title        string `gorm:"size:255"`
	MaxUsers     int    `gorm:"not null;default:8"`
	IsHidden     bool   `gorm:"not null;default:false"`
	IsLocked     bool   `gorm:"not null;default:false"`
	PasswordHash *string
	Metadata     map[string]string `gorm:"serializer:json"`

	Host    *User  `gorm:"foreignKey:HostID"`
	Members []User `gorm:"foreignKey:CurrentLobbyID"` // Has Many relationship
}

// HasPassword reports whether joining this lobby requires a password.
func (l *Lobby) HasPassword() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}

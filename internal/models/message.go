package models

import "gorm.io/gorm"

// MessageType distinguishes player chat from engine notices.
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeSystem MessageType = "system"
)

// Message is one lobby chat entry. System messages have no author, so
// UserID is nullable. Messages are deleted with their lobby.
type Message struct {
	gorm.Model
	LobbyID uint        `gorm:"not null;index"`
	UserID  *uint       `gorm:"index"`
	Type    MessageType `gorm:"size:20;not null;default:'text'"`
	Content string      `gorm:"size:2000;not null"`

	User User `gorm:"foreignKey:UserID"`
}

package models

import "gorm.io/gorm"

// StoreObject is a generic key-value record owned by a user, namespaced
// by collection (e.g. "settings", "saves").
type StoreObject struct {
	gorm.Model
	UserID     uint   `gorm:"not null;uniqueIndex:idx_store_key"`
	Collection string `gorm:"size:100;not null;uniqueIndex:idx_store_key"`
	Key        string `gorm:"size:255;not null;uniqueIndex:idx_store_key"`
	Value      string `gorm:"not null"`
}

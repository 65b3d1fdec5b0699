package models

import "gorm.io/gorm"

// Leaderboard represents a named ranking board (e.g. "weekly_wins").
type Leaderboard struct {
	gorm.Model
	Slug        string `gorm:"size:100;unique;not null"`
	Name        string `gorm:"size:255;not null"`
	Description string
}

// LeaderboardEntry is one user's best score on a board.
// One row per (board, user); submissions keep the maximum.
type LeaderboardEntry struct {
	gorm.Model
	LeaderboardID uint  `gorm:"not null;uniqueIndex:idx_board_user"`
	UserID        uint  `gorm:"not null;uniqueIndex:idx_board_user"`
	Score         int64 `gorm:"not null;index"`

	Leaderboard Leaderboard `gorm:"foreignKey:LeaderboardID"`
	User        User        `gorm:"foreignKey:UserID"`
}

// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a member of the campus network.
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Username   string         `gorm:"unique;not null" json:"username"`
	Email      string         `gorm:"unique;not null" json:"email"`
	Password   string         `gorm:"not null" json:"-"`
	Bio        string         `json:"bio"`
	Company    string         `json:"company"`
	Location   string         `json:"location"`
	Avatar     string         `json:"avatar"`
	LastSeenAt *time.Time     `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	Skills     []SkillTag     `gorm:"foreignKey:UserID" json:"skills,omitempty"`
}

// ProfileSummary is the compact user representation embedded in suggestion
// and mutual-friend responses.
type ProfileSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Bio      string `json:"bio,omitempty"`
	Company  string `json:"company,omitempty"`
	Location string `json:"location,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// Summary returns the ProfileSummary view of the user.
func (u *User) Summary() ProfileSummary {
	return ProfileSummary{
		ID:       u.ID,
		Username: u.Username,
		Bio:      u.Bio,
		Company:  u.Company,
		Location: u.Location,
		Avatar:   u.Avatar,
	}
}

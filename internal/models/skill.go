package models

import "time"

// SkillTag associates a user with a named skill. Skill names are
// case-sensitive; overlap counting deduplicates by exact name.
type SkillTag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_user_skill" json:"user_id"`
	Name      string    `gorm:"not null;uniqueIndex:idx_user_skill" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (SkillTag) TableName() string {
	return "skill_tags"
}

package repository

import (
	"context"
	"errors"

	"quad/internal/models"

	"gorm.io/gorm"
)

// SkillRepository defines the interface for skill tag data operations
type SkillRepository interface {
	Add(ctx context.Context, skill *models.SkillTag) error
	Remove(ctx context.Context, userID uint, name string) error
	ListByUser(ctx context.Context, userID uint) ([]models.SkillTag, error)
	// SkillNames returns the deduplicated set of skill names for a user.
	SkillNames(ctx context.Context, userID uint) (map[string]struct{}, error)
	// SkillNamesForUsers is the batched form, one query for many users.
	SkillNamesForUsers(ctx context.Context, userIDs []uint) (map[uint]map[string]struct{}, error)
}

// skillRepository implements SkillRepository
type skillRepository struct {
	db *gorm.DB
}

// NewSkillRepository creates a new skill repository
func NewSkillRepository(db *gorm.DB) SkillRepository {
	return &skillRepository{db: db}
}

func (r *skillRepository) Add(ctx context.Context, skill *models.SkillTag) error {
	if err := r.db.WithContext(ctx).Create(skill).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *skillRepository) Remove(ctx context.Context, userID uint, name string) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", userID, name).
		Delete(&models.SkillTag{})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Skill", name)
	}
	return nil
}

func (r *skillRepository) ListByUser(ctx context.Context, userID uint) ([]models.SkillTag, error) {
	var skills []models.SkillTag
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name").
		Find(&skills).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return skills, nil
}

func (r *skillRepository) SkillNames(ctx context.Context, userID uint) (map[string]struct{}, error) {
	var names []string
	if err := r.db.WithContext(ctx).
		Model(&models.SkillTag{}).
		Where("user_id = ?", userID).
		Pluck("name", &names).Error; err != nil {
		return nil, models.NewDataUnavailableError(err)
	}

	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set, nil
}

func (r *skillRepository) SkillNamesForUsers(ctx context.Context, userIDs []uint) (map[uint]map[string]struct{}, error) {
	result := make(map[uint]map[string]struct{}, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	for _, id := range userIDs {
		result[id] = make(map[string]struct{})
	}

	var tags []models.SkillTag
	if err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Find(&tags).Error; err != nil {
		return nil, models.NewDataUnavailableError(err)
	}

	for i := range tags {
		if set, ok := result[tags[i].UserID]; ok {
			set[tags[i].Name] = struct{}{}
		}
	}
	return result, nil
}

package repository

import (
	"context"
	"testing"

	"quad/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func addSkill(t *testing.T, db *gorm.DB, userID uint, name string) {
	require.NoError(t, db.Create(&models.SkillTag{UserID: userID, Name: name}).Error)
}

func TestSkillAddAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSkillRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")

	require.NoError(t, repo.Add(ctx, &models.SkillTag{UserID: alice.ID, Name: "go"}))
	require.NoError(t, repo.Add(ctx, &models.SkillTag{UserID: alice.ID, Name: "docker"}))

	skills, err := repo.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, skills, 2)
	assert.Equal(t, "docker", skills[0].Name)
	assert.Equal(t, "go", skills[1].Name)
}

func TestSkillRemove(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSkillRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	addSkill(t, db, alice.ID, "go")

	require.NoError(t, repo.Remove(ctx, alice.ID, "go"))

	skills, err := repo.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, skills)
}

func TestSkillRemoveMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSkillRepository(db)

	alice := createTestUser(t, db, "alice")

	err := repo.Remove(context.Background(), alice.ID, "rust")
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
}

func TestSkillNames(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSkillRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	addSkill(t, db, alice.ID, "go")
	addSkill(t, db, alice.ID, "redis")

	names, err := repo.SkillNames(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, names, 2)
	assert.Contains(t, names, "go")
	assert.Contains(t, names, "redis")
}

func TestSkillNamesForUsers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSkillRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")

	addSkill(t, db, alice.ID, "go")
	addSkill(t, db, alice.ID, "sql")
	addSkill(t, db, bob.ID, "go")

	got, err := repo.SkillNamesForUsers(ctx, []uint{alice.ID, bob.ID, carol.ID})
	require.NoError(t, err)

	assert.Len(t, got[alice.ID], 2)
	assert.Contains(t, got[bob.ID], "go")
	// Users without skills still get an empty set, not a missing key.
	require.Contains(t, got, carol.ID)
	assert.Empty(t, got[carol.ID])
}

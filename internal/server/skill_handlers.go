package server

import (
	"strings"

	"quad/internal/models"

	"github.com/gofiber/fiber/v2"
)

const maxSkillNameLength = 48

// AddSkill handles POST /api/users/me/skills
func (s *Server) AddSkill(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Skill name is required"))
	}
	if len(name) > maxSkillNameLength {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Skill name is too long"))
	}

	// Duplicate adds are rejected by the unique user/name index; report
	// them as a conflict instead of an internal error.
	existing, err := s.skillRepo.SkillNames(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	if _, ok := existing[name]; ok {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewValidationError("Skill already added"))
	}

	skill := &models.SkillTag{UserID: userID, Name: name}
	if err := s.skillRepo.Add(c.Context(), skill); err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(skill)
}

// RemoveSkill handles DELETE /api/users/me/skills/:name
func (s *Server) RemoveSkill(c *fiber.Ctx) error {
	userID := currentUserID(c)

	name := strings.TrimSpace(c.Params("name"))
	if name == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Skill name is required"))
	}

	if err := s.skillRepo.Remove(c.Context(), userID, name); err != nil {
		return respondServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

// GetUserSkills handles GET /api/users/:id/skills
func (s *Server) GetUserSkills(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if _, err := s.userRepo.GetByID(c.Context(), id); err != nil {
		return respondServiceError(c, err)
	}

	skills, err := s.skillRepo.ListByUser(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(skills)
}

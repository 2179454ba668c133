package server

import (
	"quad/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetSuggestions handles GET /api/suggestions?limit=N
func (s *Server) GetSuggestions(c *fiber.Ctx) error {
	userID := currentUserID(c)

	limit := c.QueryInt("limit", s.config.SuggestionLimit)
	if limit < 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("limit must not be negative"))
	}

	suggestions, err := s.suggestionService.Suggestions(c.Context(), userID, limit)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(suggestions)
}

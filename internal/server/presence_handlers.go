package server

import (
	"strconv"
	"strings"

	"quad/internal/models"

	"github.com/gofiber/fiber/v2"
)

const maxPresenceQuerySize = 100

// Heartbeat handles POST /api/presence/heartbeat
func (s *Server) Heartbeat(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req struct {
		Typing bool `json:"typing"`
	}
	// An empty body is a plain heartbeat.
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}

	status := s.presenceService.Heartbeat(c.Context(), userID, req.Typing, "http")
	return c.JSON(status)
}

// GetPresence handles GET /api/presence?ids=1,2,3. Without ids it answers
// for the caller's friends.
func (s *Server) GetPresence(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var ids []uint
	if raw := c.Query("ids"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
			if err != nil || id == 0 {
				return models.RespondWithError(c, fiber.StatusBadRequest,
					models.NewValidationError("ids must be a comma-separated list of user ids"))
			}
			ids = append(ids, uint(id))
		}
		if len(ids) > maxPresenceQuerySize {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Too many ids requested"))
		}
	} else {
		friends, err := s.friendService.GetFriends(c.Context(), userID)
		if err != nil {
			return respondServiceError(c, err)
		}
		for i := range friends {
			ids = append(ids, friends[i].ID)
		}
	}

	return c.JSON(s.presenceService.Statuses(ids))
}

// GetUserPresence handles GET /api/presence/:userId
func (s *Server) GetUserPresence(c *fiber.Ctx) error {
	targetUserID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	if _, err := s.userRepo.GetByID(c.Context(), targetUserID); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(s.presenceService.Status(targetUserID))
}

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quad/internal/cache"
	"quad/internal/config"
	"quad/internal/models"
	"quad/internal/presence"
	"quad/internal/repository"
	"quad/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Friendship{},
		&models.SkillTag{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	return db
}

// newTestServer builds a Server backed by an in-memory database, with
// caching disabled.
func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	db := setupHandlerTestDB(t)
	cache.SetClient(nil)

	userRepo := repository.NewUserRepository(db)
	friendRepo := repository.NewFriendRepository(db)
	skillRepo := repository.NewSkillRepository(db)

	tracker := presence.NewTracker(5*time.Minute, nil)

	s := &Server{
		config:     &config.Config{JWTSecret: "test_secret", SuggestionLimit: 10},
		db:         db,
		userRepo:   userRepo,
		friendRepo: friendRepo,
		skillRepo:  skillRepo,
	}
	s.friendService = service.NewFriendService(friendRepo, userRepo)
	s.suggestionService = service.NewSuggestionService(userRepo, friendRepo, skillRepo, service.SuggestionOptions{
		Limit:            10,
		TTL:              time.Minute,
		Workers:          4,
		CandidateTimeout: time.Second,
	})
	s.presenceService = presence.NewService(tracker, nil, userRepo, 30*time.Second)

	return s, db
}

// newAuthedApp returns a Fiber app with the protected routes registered,
// whose requests act as *actor. Tests switch users between requests by
// assigning to the pointee. Auth and rate-limit middleware are left out.
func newAuthedApp(s *Server, actor *uint) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", *actor)
		return c.Next()
	})

	api := app.Group("/api")

	users := api.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Post("/me/skills", s.AddSkill)
	users.Delete("/me/skills/:name", s.RemoveSkill)
	users.Get("/", s.GetAllUsers)
	users.Get("/:id/skills", s.GetUserSkills)
	users.Get("/:id", s.GetUserProfile)

	friends := api.Group("/friends")
	friends.Get("/", s.GetFriends)
	friends.Post("/requests/:userId", s.SendFriendRequest)
	friends.Get("/requests", s.GetPendingRequests)
	friends.Get("/requests/sent", s.GetSentRequests)
	friends.Post("/requests/:requestId/accept", s.AcceptFriendRequest)
	friends.Post("/requests/:requestId/reject", s.RejectFriendRequest)
	friends.Get("/status/:userId", s.GetFriendshipStatus)
	friends.Get("/mutual/:userId", s.GetMutualFriends)
	friends.Delete("/:userId", s.RemoveFriend)

	api.Get("/suggestions", s.GetSuggestions)

	presenceRoutes := api.Group("/presence")
	presenceRoutes.Post("/heartbeat", s.Heartbeat)
	presenceRoutes.Get("/", s.GetPresence)
	presenceRoutes.Get("/:userId", s.GetUserPresence)

	return app
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestParseID(t *testing.T) {
	s := &Server{}
	app := fiber.New()
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "id")
		if err != nil {
			return nil
		}
		return c.JSON(fiber.Map{"id": id})
	})

	tests := []struct {
		param          string
		expectedStatus int
	}{
		{"7", http.StatusOK},
		{"0", http.StatusBadRequest},
		{"-3", http.StatusBadRequest},
		{"abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/items/"+tt.param, nil)
			resp := doRequest(t, app, req)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"not found", models.NewNotFoundError("User", 1), http.StatusNotFound},
		{"validation", models.NewValidationError("bad"), http.StatusBadRequest},
		{"unauthorized", models.NewUnauthorizedError("nope"), http.StatusForbidden},
		{"data unavailable", models.NewDataUnavailableError(nil), http.StatusServiceUnavailable},
		{"internal", models.NewInternalError(nil), http.StatusInternalServerError},
		{"unknown", assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, statusFor(tt.err))
		})
	}
}

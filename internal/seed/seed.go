// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"quad/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	ShouldClean bool
	// SkipBcrypt uses a plaintext password for speed in local dev.
	SkipBcrypt bool
}

var (
	companies = []string{
		"Acme Corp", "Globex", "Initech", "Umbrella Labs", "Stark Industries",
		"Hooli", "Pied Piper", "Waystar", "Vandelay Industries", "Dunder Mifflin",
	}

	locations = []string{
		"Berlin", "London", "New York", "San Francisco", "Tokyo",
		"Amsterdam", "Austin", "Toronto", "Lisbon", "Singapore",
	}

	skillNames = []string{
		"Go", "Python", "TypeScript", "Rust", "Kubernetes", "Postgres",
		"Redis", "React", "Terraform", "GraphQL", "Kafka", "Docker",
		"Machine Learning", "Security", "SRE", "Product Design",
	}
)

// Seeder populates the database with test data.
type Seeder struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
}

// NewSeeder creates a new Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:   db,
		opts: opts,
		//nolint:gosec // Weak random number generator is fine for seeding
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run seeds users, skills and a friendship mesh.
func (s *Seeder) Run() error {
	log.Printf("🌱 Starting database seeding with %d users...", s.opts.NumUsers)

	if s.opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			log.Println("⚠️  Warning: Could not clear all existing data, but continuing anyway...")
		}
	}

	users, err := s.createUsers(s.opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("✓ %d test users created", len(users))

	skills, err := s.assignSkills(users)
	if err != nil {
		return fmt.Errorf("failed to assign skills: %w", err)
	}
	log.Printf("✓ %d skill tags assigned", skills)

	edges, err := s.createFriendshipMesh(users)
	if err != nil {
		return fmt.Errorf("failed to create friendships: %w", err)
	}
	log.Printf("✓ %d friendship edges created", edges)

	log.Println("🎉 Database seeding completed successfully!")
	return nil
}

// ClearAll truncates all seeded tables.
func (s *Seeder) ClearAll() error {
	log.Println("🗑️  Clearing existing data...")
	sql := `TRUNCATE TABLE skill_tags, friendships, users RESTART IDENTITY CASCADE;`
	return s.db.Exec(sql).Error
}

func (s *Seeder) createUsers(n int) ([]models.User, error) {
	password := "password123"
	if !s.opts.SkipBcrypt {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		password = string(hashed)
	}

	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		username := strings.ToLower(gofakeit.Username()) + fmt.Sprintf("%d", gofakeit.Number(100, 999))
		user := models.User{
			Username: username,
			Email:    fmt.Sprintf("%s@example.com", username),
			Password: password,
			Bio:      gofakeit.Sentence(10),
			Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		}
		// Leave some profiles without company or location so scoring paths
		// with missing attributes show up in dev data.
		if s.rng.Intn(10) < 8 {
			user.Company = companies[s.rng.Intn(len(companies))]
		}
		if s.rng.Intn(10) < 8 {
			user.Location = locations[s.rng.Intn(len(locations))]
		}
		users = append(users, user)
	}

	if err := s.db.CreateInBatches(&users, 100).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Seeder) assignSkills(users []models.User) (int, error) {
	var tags []models.SkillTag
	for i := range users {
		count := 1 + s.rng.Intn(5)
		picked := s.rng.Perm(len(skillNames))[:count]
		for _, idx := range picked {
			tags = append(tags, models.SkillTag{
				UserID: users[i].ID,
				Name:   skillNames[idx],
			})
		}
	}
	if len(tags) == 0 {
		return 0, nil
	}
	if err := s.db.CreateInBatches(&tags, 200).Error; err != nil {
		return 0, err
	}
	return len(tags), nil
}

// createFriendshipMesh links users with a mix of accepted, pending and
// rejected edges so suggestion rankings have realistic structure.
func (s *Seeder) createFriendshipMesh(users []models.User) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}

	seen := make(map[[2]uint]struct{})
	var edges []models.Friendship

	target := len(users) * 3
	for attempts := 0; len(edges) < target && attempts < target*10; attempts++ {
		a := users[s.rng.Intn(len(users))].ID
		b := users[s.rng.Intn(len(users))].ID
		if a == b {
			continue
		}
		key := [2]uint{min(a, b), max(a, b)}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		status := models.FriendshipStatusAccepted
		switch s.rng.Intn(10) {
		case 0, 1:
			status = models.FriendshipStatusPending
		case 2:
			status = models.FriendshipStatusRejected
		}

		edges = append(edges, models.Friendship{
			RequesterID: a,
			AddresseeID: b,
			Status:      status,
		})
	}

	if len(edges) == 0 {
		return 0, nil
	}
	if err := s.db.CreateInBatches(&edges, 200).Error; err != nil {
		return 0, err
	}
	return len(edges), nil
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"quad/internal/cache"
	"quad/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn           func(context.Context, uint) (*models.User, error)
	getByIDsFn          func(context.Context, []uint) ([]models.User, error)
	getByEmailFn        func(context.Context, string) (*models.User, error)
	getByUsernameFn     func(context.Context, string) (*models.User, error)
	createFn            func(context.Context, *models.User) error
	updateFn            func(context.Context, *models.User) error
	listFn              func(context.Context, int, int) ([]models.User, error)
	listCandidatePoolFn func(context.Context, map[uint]struct{}) ([]models.User, error)
	updateLastSeenFn    func(context.Context, uint, time.Time) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *userRepoStub) ListCandidatePool(ctx context.Context, excluding map[uint]struct{}) ([]models.User, error) {
	return s.listCandidatePoolFn(ctx, excluding)
}
func (s *userRepoStub) UpdateLastSeen(ctx context.Context, userID uint, at time.Time) error {
	return s.updateLastSeenFn(ctx, userID, at)
}

// friendRepoStub is a stub for repository.FriendRepository.
type friendRepoStub struct {
	createFn                    func(context.Context, *models.Friendship) error
	getByIDFn                   func(context.Context, uint) (*models.Friendship, error)
	getFriendshipBetweenFn      func(context.Context, uint, uint) (*models.Friendship, error)
	getFriendsFn                func(context.Context, uint) ([]models.User, error)
	getPendingRequestsFn        func(context.Context, uint) ([]models.Friendship, error)
	getSentRequestsFn           func(context.Context, uint) ([]models.Friendship, error)
	updateStatusFn              func(context.Context, uint, models.FriendshipStatus) error
	removeFriendshipFn          func(context.Context, uint, uint) error
	acceptedFriendIDsFn         func(context.Context, uint) (map[uint]struct{}, error)
	acceptedFriendIDsForUsersFn func(context.Context, []uint) (map[uint]map[uint]struct{}, error)
	outstandingEdgeIDsFn        func(context.Context, uint) (map[uint]struct{}, error)
}

func (s *friendRepoStub) Create(ctx context.Context, f *models.Friendship) error {
	return s.createFn(ctx, f)
}
func (s *friendRepoStub) GetByID(ctx context.Context, id uint) (*models.Friendship, error) {
	return s.getByIDFn(ctx, id)
}
func (s *friendRepoStub) GetFriendshipBetweenUsers(ctx context.Context, a, b uint) (*models.Friendship, error) {
	return s.getFriendshipBetweenFn(ctx, a, b)
}
func (s *friendRepoStub) GetFriends(ctx context.Context, userID uint) ([]models.User, error) {
	return s.getFriendsFn(ctx, userID)
}
func (s *friendRepoStub) GetPendingRequests(ctx context.Context, userID uint) ([]models.Friendship, error) {
	return s.getPendingRequestsFn(ctx, userID)
}
func (s *friendRepoStub) GetSentRequests(ctx context.Context, userID uint) ([]models.Friendship, error) {
	return s.getSentRequestsFn(ctx, userID)
}
func (s *friendRepoStub) UpdateStatus(ctx context.Context, id uint, status models.FriendshipStatus) error {
	return s.updateStatusFn(ctx, id, status)
}
func (s *friendRepoStub) RemoveFriendship(ctx context.Context, a, b uint) error {
	return s.removeFriendshipFn(ctx, a, b)
}
func (s *friendRepoStub) AcceptedFriendIDs(ctx context.Context, userID uint) (map[uint]struct{}, error) {
	return s.acceptedFriendIDsFn(ctx, userID)
}
func (s *friendRepoStub) AcceptedFriendIDsForUsers(ctx context.Context, ids []uint) (map[uint]map[uint]struct{}, error) {
	return s.acceptedFriendIDsForUsersFn(ctx, ids)
}
func (s *friendRepoStub) OutstandingEdgeIDs(ctx context.Context, userID uint) (map[uint]struct{}, error) {
	return s.outstandingEdgeIDsFn(ctx, userID)
}

// skillRepoStub is a stub for repository.SkillRepository.
type skillRepoStub struct {
	addFn                func(context.Context, *models.SkillTag) error
	removeFn             func(context.Context, uint, string) error
	listByUserFn         func(context.Context, uint) ([]models.SkillTag, error)
	skillNamesFn         func(context.Context, uint) (map[string]struct{}, error)
	skillNamesForUsersFn func(context.Context, []uint) (map[uint]map[string]struct{}, error)
}

func (s *skillRepoStub) Add(ctx context.Context, skill *models.SkillTag) error {
	return s.addFn(ctx, skill)
}
func (s *skillRepoStub) Remove(ctx context.Context, userID uint, name string) error {
	return s.removeFn(ctx, userID, name)
}
func (s *skillRepoStub) ListByUser(ctx context.Context, userID uint) ([]models.SkillTag, error) {
	return s.listByUserFn(ctx, userID)
}
func (s *skillRepoStub) SkillNames(ctx context.Context, userID uint) (map[string]struct{}, error) {
	return s.skillNamesFn(ctx, userID)
}
func (s *skillRepoStub) SkillNamesForUsers(ctx context.Context, ids []uint) (map[uint]map[string]struct{}, error) {
	return s.skillNamesForUsersFn(ctx, ids)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:           func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByIDsFn:          func(_ context.Context, _ []uint) ([]models.User, error) { return nil, nil },
		getByEmailFn:        func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		getByUsernameFn:     func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:            func(_ context.Context, _ *models.User) error { return nil },
		updateFn:            func(_ context.Context, _ *models.User) error { return nil },
		listFn:              func(_ context.Context, _, _ int) ([]models.User, error) { return nil, nil },
		listCandidatePoolFn: func(_ context.Context, _ map[uint]struct{}) ([]models.User, error) { return nil, nil },
		updateLastSeenFn:    func(_ context.Context, _ uint, _ time.Time) error { return nil },
	}
}

func noopFriendRepo() *friendRepoStub {
	return &friendRepoStub{
		createFn:               func(_ context.Context, _ *models.Friendship) error { return nil },
		getByIDFn:              func(_ context.Context, _ uint) (*models.Friendship, error) { return nil, nil },
		getFriendshipBetweenFn: func(_ context.Context, _, _ uint) (*models.Friendship, error) { return nil, nil },
		getFriendsFn:           func(_ context.Context, _ uint) ([]models.User, error) { return nil, nil },
		getPendingRequestsFn:   func(_ context.Context, _ uint) ([]models.Friendship, error) { return nil, nil },
		getSentRequestsFn:      func(_ context.Context, _ uint) ([]models.Friendship, error) { return nil, nil },
		updateStatusFn:         func(_ context.Context, _ uint, _ models.FriendshipStatus) error { return nil },
		removeFriendshipFn:     func(_ context.Context, _, _ uint) error { return nil },
		acceptedFriendIDsFn: func(_ context.Context, _ uint) (map[uint]struct{}, error) {
			return map[uint]struct{}{}, nil
		},
		acceptedFriendIDsForUsersFn: func(_ context.Context, ids []uint) (map[uint]map[uint]struct{}, error) {
			out := make(map[uint]map[uint]struct{}, len(ids))
			for _, id := range ids {
				out[id] = map[uint]struct{}{}
			}
			return out, nil
		},
		outstandingEdgeIDsFn: func(_ context.Context, _ uint) (map[uint]struct{}, error) {
			return map[uint]struct{}{}, nil
		},
	}
}

func noopSkillRepo() *skillRepoStub {
	return &skillRepoStub{
		addFn:        func(_ context.Context, _ *models.SkillTag) error { return nil },
		removeFn:     func(_ context.Context, _ uint, _ string) error { return nil },
		listByUserFn: func(_ context.Context, _ uint) ([]models.SkillTag, error) { return nil, nil },
		skillNamesFn: func(_ context.Context, _ uint) (map[string]struct{}, error) {
			return map[string]struct{}{}, nil
		},
		skillNamesForUsersFn: func(_ context.Context, ids []uint) (map[uint]map[string]struct{}, error) {
			out := make(map[uint]map[string]struct{}, len(ids))
			for _, id := range ids {
				out[id] = map[string]struct{}{}
			}
			return out, nil
		},
	}
}

func newTestSuggestionService(u *userRepoStub, f *friendRepoStub, k *skillRepoStub) *SuggestionService {
	return NewSuggestionService(u, f, k, SuggestionOptions{
		Limit:            10,
		TTL:              time.Minute,
		Workers:          4,
		CandidateTimeout: time.Second,
	})
}

func TestSuggestionsExcludesSelfAndConnectedUsers(t *testing.T) {
	cache.SetClient(nil)

	userRepo := noopUserRepo()
	friendRepo := noopFriendRepo()
	skillRepo := noopSkillRepo()

	friendRepo.acceptedFriendIDsFn = func(_ context.Context, userID uint) (map[uint]struct{}, error) {
		if userID == 1 {
			return set(2), nil
		}
		return set(1), nil
	}
	friendRepo.outstandingEdgeIDsFn = func(_ context.Context, _ uint) (map[uint]struct{}, error) {
		return set(3), nil
	}

	var gotExcluded map[uint]struct{}
	userRepo.listCandidatePoolFn = func(_ context.Context, excluding map[uint]struct{}) ([]models.User, error) {
		gotExcluded = excluding
		// User 4 has a rejected edge with the viewer; the pool still
		// contains them because rejected edges do not exclude.
		return []models.User{{ID: 4}, {ID: 5}}, nil
	}
	friendRepo.acceptedFriendIDsForUsersFn = func(_ context.Context, ids []uint) (map[uint]map[uint]struct{}, error) {
		out := make(map[uint]map[uint]struct{}, len(ids))
		for _, id := range ids {
			out[id] = set(2) // one mutual friend with the viewer
		}
		return out, nil
	}

	got, err := newTestSuggestionService(userRepo, friendRepo, skillRepo).Suggestions(context.Background(), 1, 10)
	require.NoError(t, err)

	assert.Contains(t, gotExcluded, uint(1))
	assert.Contains(t, gotExcluded, uint(2))
	assert.Contains(t, gotExcluded, uint(3))
	require.Len(t, got, 2)
	assert.Equal(t, uint(4), got[0].Profile.ID)
	assert.Equal(t, uint(5), got[1].Profile.ID)
}

func TestSuggestionsOmitsZeroScoreCandidates(t *testing.T) {
	cache.SetClient(nil)

	userRepo := noopUserRepo()
	friendRepo := noopFriendRepo()
	skillRepo := noopSkillRepo()

	userRepo.listCandidatePoolFn = func(_ context.Context, _ map[uint]struct{}) ([]models.User, error) {
		return []models.User{{ID: 2}, {ID: 3}}, nil
	}

	got, err := newTestSuggestionService(userRepo, friendRepo, skillRepo).Suggestions(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSuggestionsOrdersByScoreThenID(t *testing.T) {
	cache.SetClient(nil)

	userRepo := noopUserRepo()
	friendRepo := noopFriendRepo()
	skillRepo := noopSkillRepo()

	userRepo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Company: "Acme"}, nil
	}
	userRepo.listCandidatePoolFn = func(_ context.Context, _ map[uint]struct{}) ([]models.User, error) {
		return []models.User{
			{ID: 5, Company: "Acme"}, // flat company bonus: 5
			{ID: 4},                  // 1 mutual + 1 shared skill: 5
			{ID: 6, Company: "Acme"}, // 1 mutual + company: 8
		}, nil
	}
	friendRepo.acceptedFriendIDsFn = func(_ context.Context, userID uint) (map[uint]struct{}, error) {
		if userID == 1 {
			return set(9), nil
		}
		return map[uint]struct{}{}, nil
	}
	friendRepo.acceptedFriendIDsForUsersFn = func(_ context.Context, ids []uint) (map[uint]map[uint]struct{}, error) {
		out := make(map[uint]map[uint]struct{}, len(ids))
		for _, id := range ids {
			if id == 4 || id == 6 {
				out[id] = set(9)
			} else {
				out[id] = map[uint]struct{}{}
			}
		}
		return out, nil
	}
	skillRepo.skillNamesFn = func(_ context.Context, _ uint) (map[string]struct{}, error) {
		return skills("go"), nil
	}
	skillRepo.skillNamesForUsersFn = func(_ context.Context, ids []uint) (map[uint]map[string]struct{}, error) {
		out := make(map[uint]map[string]struct{}, len(ids))
		for _, id := range ids {
			if id == 4 {
				out[id] = skills("go")
			} else {
				out[id] = map[string]struct{}{}
			}
		}
		return out, nil
	}

	got, err := newTestSuggestionService(userRepo, friendRepo, skillRepo).Suggestions(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Highest score first; the two 5s tie-break on the lower id.
	assert.Equal(t, uint(6), got[0].Profile.ID)
	assert.Equal(t, 8, got[0].Score)
	assert.Equal(t, uint(4), got[1].Profile.ID)
	assert.Equal(t, uint(5), got[2].Profile.ID)
}

func TestSuggestionsClampsRequestedLimit(t *testing.T) {
	cache.SetClient(nil)

	userRepo := noopUserRepo()
	friendRepo := noopFriendRepo()
	skillRepo := noopSkillRepo()

	pool := make([]models.User, 0, 30)
	for i := uint(2); i < 32; i++ {
		pool = append(pool, models.User{ID: i, Company: "Acme"})
	}
	userRepo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Company: "Acme"}, nil
	}
	userRepo.listCandidatePoolFn = func(_ context.Context, _ map[uint]struct{}) ([]models.User, error) {
		return pool, nil
	}

	svc := newTestSuggestionService(userRepo, friendRepo, skillRepo)

	got, err := svc.Suggestions(context.Background(), 1, 50)
	require.NoError(t, err)
	assert.Len(t, got, 10)

	got, err = svc.Suggestions(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSuggestionsLimitZeroSkipsAllIO(t *testing.T) {
	cache.SetClient(nil)

	userRepo := noopUserRepo()
	userRepo.getByIDFn = func(_ context.Context, _ uint) (*models.User, error) {
		t.Fatal("unexpected user lookup for limit 0")
		return nil, nil
	}

	got, err := newTestSuggestionService(userRepo, noopFriendRepo(), noopSkillRepo()).Suggestions(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSuggestionsRejectsInvalidInput(t *testing.T) {
	cache.SetClient(nil)
	svc := newTestSuggestionService(noopUserRepo(), noopFriendRepo(), noopSkillRepo())

	_, err := svc.Suggestions(context.Background(), 0, 10)
	require.Error(t, err)

	_, err = svc.Suggestions(context.Background(), 1, -1)
	require.Error(t, err)
}

func TestSuggestionsViewerDataFailureAborts(t *testing.T) {
	cache.SetClient(nil)

	friendRepo := noopFriendRepo()
	friendRepo.acceptedFriendIDsFn = func(_ context.Context, _ uint) (map[uint]struct{}, error) {
		return nil, models.NewDataUnavailableError(errors.New("db down"))
	}

	_, err := newTestSuggestionService(noopUserRepo(), friendRepo, noopSkillRepo()).Suggestions(context.Background(), 1, 10)
	require.Error(t, err)
	assert.True(t, models.IsDataUnavailable(err))
}

func TestSuggestionsDropsOnlyFailingCandidates(t *testing.T) {
	cache.SetClient(nil)

	userRepo := noopUserRepo()
	friendRepo := noopFriendRepo()
	skillRepo := noopSkillRepo()

	userRepo.listCandidatePoolFn = func(_ context.Context, _ map[uint]struct{}) ([]models.User, error) {
		return []models.User{{ID: 4}, {ID: 5}}, nil
	}
	// Batched lookups fail; the service falls back to per-candidate reads.
	friendRepo.acceptedFriendIDsForUsersFn = func(_ context.Context, _ []uint) (map[uint]map[uint]struct{}, error) {
		return nil, models.NewDataUnavailableError(errors.New("batch failed"))
	}
	friendRepo.acceptedFriendIDsFn = func(_ context.Context, userID uint) (map[uint]struct{}, error) {
		switch userID {
		case 1:
			return set(9), nil
		case 4:
			return nil, models.NewDataUnavailableError(errors.New("row gone"))
		default:
			return set(9), nil
		}
	}

	got, err := newTestSuggestionService(userRepo, friendRepo, skillRepo).Suggestions(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint(5), got[0].Profile.ID)
	assert.Equal(t, 1, got[0].MutualFriendCount)
}

func TestSuggestionsAllCandidatesFailing(t *testing.T) {
	cache.SetClient(nil)

	userRepo := noopUserRepo()
	friendRepo := noopFriendRepo()

	userRepo.listCandidatePoolFn = func(_ context.Context, _ map[uint]struct{}) ([]models.User, error) {
		return []models.User{{ID: 4}, {ID: 5}}, nil
	}
	friendRepo.acceptedFriendIDsForUsersFn = func(_ context.Context, _ []uint) (map[uint]map[uint]struct{}, error) {
		return nil, models.NewDataUnavailableError(errors.New("batch failed"))
	}
	friendRepo.acceptedFriendIDsFn = func(_ context.Context, userID uint) (map[uint]struct{}, error) {
		if userID == 1 {
			return map[uint]struct{}{}, nil
		}
		return nil, models.NewDataUnavailableError(errors.New("down"))
	}

	_, err := newTestSuggestionService(userRepo, friendRepo, noopSkillRepo()).Suggestions(context.Background(), 1, 10)
	require.Error(t, err)
	assert.True(t, models.IsDataUnavailable(err))
}

func TestSuggestionsServedFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer cache.SetClient(nil)

	cached := []models.SuggestionCandidate{
		{Profile: models.ProfileSummary{ID: 4}, ScoreBreakdown: models.ScoreBreakdown{Score: 5}},
		{Profile: models.ProfileSummary{ID: 5}, ScoreBreakdown: models.ScoreBreakdown{Score: 3}},
	}
	require.NoError(t, cache.SetJSON(context.Background(), cache.SuggestionKey(1), cached, time.Minute))

	userRepo := noopUserRepo()
	userRepo.getByIDFn = func(_ context.Context, _ uint) (*models.User, error) {
		t.Fatal("cache hit must not touch the graph")
		return nil, nil
	}

	got, err := newTestSuggestionService(userRepo, noopFriendRepo(), noopSkillRepo()).Suggestions(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint(4), got[0].Profile.ID)
}

func TestSuggestionsWritesCacheOnMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer cache.SetClient(nil)

	var poolCalls int
	userRepo := noopUserRepo()
	userRepo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Company: "Acme"}, nil
	}
	userRepo.listCandidatePoolFn = func(_ context.Context, _ map[uint]struct{}) ([]models.User, error) {
		poolCalls++
		return []models.User{{ID: 4, Company: "Acme"}}, nil
	}

	svc := newTestSuggestionService(userRepo, noopFriendRepo(), noopSkillRepo())

	got, err := svc.Suggestions(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = svc.Suggestions(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, poolCalls, "second call should be served from cache")
}

func TestMutualFriends(t *testing.T) {
	cache.SetClient(nil)

	userRepo := noopUserRepo()
	friendRepo := noopFriendRepo()

	friendRepo.acceptedFriendIDsFn = func(_ context.Context, userID uint) (map[uint]struct{}, error) {
		if userID == 1 {
			return set(3, 4, 5), nil
		}
		return set(4, 5, 6), nil
	}
	userRepo.getByIDsFn = func(_ context.Context, ids []uint) ([]models.User, error) {
		assert.ElementsMatch(t, []uint{4, 5}, ids)
		return []models.User{{ID: 5, Username: "eve"}, {ID: 4, Username: "dan"}}, nil
	}

	got, err := newTestSuggestionService(userRepo, friendRepo, noopSkillRepo()).MutualFriends(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint(4), got[0].ID)
	assert.Equal(t, uint(5), got[1].ID)
}

func TestMutualFriendsValidation(t *testing.T) {
	svc := newTestSuggestionService(noopUserRepo(), noopFriendRepo(), noopSkillRepo())

	_, err := svc.MutualFriends(context.Background(), 0, 2)
	require.Error(t, err)

	_, err = svc.MutualFriends(context.Background(), 1, 1)
	require.Error(t, err)
}

func TestMutualFriendsEmptyIntersection(t *testing.T) {
	friendRepo := noopFriendRepo()
	friendRepo.acceptedFriendIDsFn = func(_ context.Context, userID uint) (map[uint]struct{}, error) {
		if userID == 1 {
			return set(3), nil
		}
		return set(6), nil
	}

	got, err := newTestSuggestionService(noopUserRepo(), friendRepo, noopSkillRepo()).MutualFriends(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Empty(t, got)
}

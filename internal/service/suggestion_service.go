package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"quad/internal/cache"
	"quad/internal/middleware"
	"quad/internal/models"
	"quad/internal/observability"
	"quad/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// scoreBatchSize is how many candidates one worker resolves per batched
// graph query. On a batch failure the worker retries its candidates one by
// one so a single bad lookup only drops that candidate.
const scoreBatchSize = 16

// SuggestionOptions tunes the ranker. Zero values fall back to defaults.
type SuggestionOptions struct {
	// Limit is the hard cap on ranked output length.
	Limit int
	// TTL bounds the staleness of a cached ranking. Graph mutations do not
	// invalidate the cache; results up to TTL old are accepted behavior.
	TTL time.Duration
	// Workers bounds concurrent candidate fan-out.
	Workers int
	// CandidateTimeout bounds one candidate (or candidate batch) lookup.
	CandidateTimeout time.Duration
}

func (o *SuggestionOptions) applyDefaults() {
	if o.Limit <= 0 {
		o.Limit = 10
	}
	if o.TTL <= 0 {
		o.TTL = 5 * time.Minute
	}
	if o.Workers <= 0 {
		o.Workers = 8
	}
	if o.CandidateTimeout <= 0 {
		o.CandidateTimeout = 2 * time.Second
	}
}

// SuggestionService ranks "people you may know" for a viewer from the
// friendship graph, skill overlap and profile attributes.
type SuggestionService struct {
	userRepo   repository.UserRepository
	friendRepo repository.FriendRepository
	skillRepo  repository.SkillRepository
	opts       SuggestionOptions

	// Coalesces concurrent rankings for the same viewer into one computation.
	group singleflight.Group
}

// NewSuggestionService returns a new SuggestionService.
func NewSuggestionService(
	userRepo repository.UserRepository,
	friendRepo repository.FriendRepository,
	skillRepo repository.SkillRepository,
	opts SuggestionOptions,
) *SuggestionService {
	opts.applyDefaults()
	return &SuggestionService{
		userRepo:   userRepo,
		friendRepo: friendRepo,
		skillRepo:  skillRepo,
		opts:       opts,
	}
}

// Suggestions returns up to limit ranked candidates for the viewer. The
// full ranking (up to the configured cap) is cached per viewer; a cache hit
// skips the graph entirely. limit is clamped to the cap; limit 0 yields an
// empty list without touching the store.
func (s *SuggestionService) Suggestions(ctx context.Context, viewerID uint, limit int) ([]models.SuggestionCandidate, error) {
	if viewerID == 0 {
		return nil, models.NewUnauthorizedError("An authenticated viewer is required")
	}
	if limit < 0 {
		return nil, models.NewValidationError("limit must not be negative")
	}
	if limit == 0 {
		return []models.SuggestionCandidate{}, nil
	}
	if limit > s.opts.Limit {
		limit = s.opts.Limit
	}

	key := cache.SuggestionKey(viewerID)

	var cached []models.SuggestionCandidate
	found, err := cache.GetJSON(ctx, key, &cached)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "suggestion cache read failed", "error", err)
	}
	if found {
		observability.SuggestionCacheHits.Inc()
		return truncate(cached, limit), nil
	}
	observability.SuggestionCacheMisses.Inc()

	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		ranked, err := s.rank(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		if err := cache.SetJSON(ctx, key, ranked, s.opts.TTL); err != nil {
			middleware.Logger.WarnContext(ctx, "suggestion cache write failed", "error", err)
		}
		return ranked, nil
	})
	if err != nil {
		return nil, err
	}

	return truncate(result.([]models.SuggestionCandidate), limit), nil
}

// rank computes the full ranking for a viewer: resolve the viewer's graph
// snapshot, exclude connected and pending users, score the remaining pool
// concurrently, then sort and cap. Failures on the viewer's own data abort
// the ranking; failures on individual candidates only drop those candidates.
func (s *SuggestionService) rank(ctx context.Context, viewerID uint) ([]models.SuggestionCandidate, error) {
	span, ctx := observability.NewSpan(ctx, "suggestions.rank")
	defer span.End()
	span.AddAttributes(attribute.Int("viewer.id", int(viewerID)))

	viewer, err := s.userRepo.GetByID(ctx, viewerID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	viewerFriends, err := s.friendRepo.AcceptedFriendIDs(ctx, viewerID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	outstanding, err := s.friendRepo.OutstandingEdgeIDs(ctx, viewerID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	viewerSkills, err := s.skillRepo.SkillNames(ctx, viewerID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	// Accepted and pending edges suppress a candidate in either direction;
	// rejected edges deliberately do not.
	excluded := make(map[uint]struct{}, len(viewerFriends)+len(outstanding)+1)
	excluded[viewerID] = struct{}{}
	for id := range viewerFriends {
		excluded[id] = struct{}{}
	}
	for id := range outstanding {
		excluded[id] = struct{}{}
	}

	pool, err := s.userRepo.ListCandidatePool(ctx, excluded)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.AddAttributes(attribute.Int("candidates.pool", len(pool)))
	if len(pool) == 0 {
		return []models.SuggestionCandidate{}, nil
	}

	var (
		mu       sync.Mutex
		ranked   []models.SuggestionCandidate
		resolved int
	)

	score := func(candidate *models.User, friends map[uint]struct{}, skills map[string]struct{}) {
		b := ScoreCandidate(viewer, candidate, viewerFriends, friends, viewerSkills, skills)
		mu.Lock()
		resolved++
		if b.Score > 0 {
			ranked = append(ranked, models.SuggestionCandidate{
				Profile:        candidate.Summary(),
				ScoreBreakdown: b,
			})
		}
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for start := 0; start < len(pool); start += scoreBatchSize {
		batch := pool[start:min(start+scoreBatchSize, len(pool))]
		g.Go(func() error {
			s.scoreBatch(gctx, batch, score)
			return nil
		})
	}
	// Workers never return errors; failed lookups were dropped above.
	_ = g.Wait()

	if resolved == 0 {
		err := models.NewDataUnavailableError(ctx.Err())
		span.SetError(err)
		return nil, err
	}

	// Deterministic order regardless of fetch completion order: score
	// descending, candidate id ascending as the tie-break.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Profile.ID < ranked[j].Profile.ID
	})

	if len(ranked) > s.opts.Limit {
		ranked = ranked[:s.opts.Limit]
	}
	span.AddAttributes(attribute.Int("candidates.ranked", len(ranked)))
	return ranked, nil
}

// scoreBatch resolves friend and skill sets for a batch of candidates with
// two queries, then scores each. If the batched fetch fails the batch is
// retried candidate by candidate so only genuinely failing lookups drop.
func (s *SuggestionService) scoreBatch(ctx context.Context, batch []models.User, score func(*models.User, map[uint]struct{}, map[string]struct{})) {
	bctx, cancel := context.WithTimeout(ctx, s.opts.CandidateTimeout)
	defer cancel()

	ids := make([]uint, len(batch))
	for i := range batch {
		ids[i] = batch[i].ID
	}

	friendSets, friendsErr := s.friendRepo.AcceptedFriendIDsForUsers(bctx, ids)
	skillSets, skillsErr := s.skillRepo.SkillNamesForUsers(bctx, ids)

	if friendsErr == nil && skillsErr == nil {
		for i := range batch {
			score(&batch[i], friendSets[batch[i].ID], skillSets[batch[i].ID])
		}
		return
	}

	middleware.Logger.WarnContext(ctx, "candidate batch lookup failed, retrying individually",
		"batch_size", len(batch), "friends_err", friendsErr, "skills_err", skillsErr)

	for i := range batch {
		candidate := &batch[i]
		cctx, ccancel := context.WithTimeout(ctx, s.opts.CandidateTimeout)
		friends, err := s.friendRepo.AcceptedFriendIDs(cctx, candidate.ID)
		if err == nil {
			var skills map[string]struct{}
			skills, err = s.skillRepo.SkillNames(cctx, candidate.ID)
			if err == nil {
				score(candidate, friends, skills)
			}
		}
		ccancel()
		if err != nil {
			observability.CandidateLookupFailures.Inc()
			middleware.Logger.WarnContext(ctx, "dropping candidate after failed lookup",
				"candidate_id", candidate.ID, "error", err)
		}
	}
}

// MutualFriends returns the profiles present in both users' accepted-friend
// sets, ordered by id. It is computed on demand and never cached.
func (s *SuggestionService) MutualFriends(ctx context.Context, viewerID, otherUserID uint) ([]models.ProfileSummary, error) {
	if viewerID == 0 {
		return nil, models.NewUnauthorizedError("An authenticated viewer is required")
	}
	if otherUserID == 0 || otherUserID == viewerID {
		return nil, models.NewValidationError("A distinct target user is required")
	}

	viewerFriends, err := s.friendRepo.AcceptedFriendIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	otherFriends, err := s.friendRepo.AcceptedFriendIDs(ctx, otherUserID)
	if err != nil {
		return nil, err
	}

	var sharedIDs []uint
	for id := range viewerFriends {
		if _, ok := otherFriends[id]; ok {
			sharedIDs = append(sharedIDs, id)
		}
	}
	if len(sharedIDs) == 0 {
		return []models.ProfileSummary{}, nil
	}

	users, err := s.userRepo.GetByIDs(ctx, sharedIDs)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ProfileSummary, 0, len(users))
	for i := range users {
		summaries = append(summaries, users[i].Summary())
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries, nil
}

func truncate(list []models.SuggestionCandidate, limit int) []models.SuggestionCandidate {
	if len(list) > limit {
		return list[:limit]
	}
	return list
}

package repository

import (
	"context"
	"errors"

	"quad/internal/models"

	"gorm.io/gorm"
)

// FriendRepository defines the interface for friendship-edge data operations.
// The read-only set queries form the graph contract the suggestion ranker
// consumes; the mutating operations back the friend-request lifecycle.
type FriendRepository interface {
	Create(ctx context.Context, friendship *models.Friendship) error
	GetByID(ctx context.Context, id uint) (*models.Friendship, error)
	GetFriendshipBetweenUsers(ctx context.Context, userID1, userID2 uint) (*models.Friendship, error)
	GetFriends(ctx context.Context, userID uint) ([]models.User, error)
	GetPendingRequests(ctx context.Context, userID uint) ([]models.Friendship, error)
	GetSentRequests(ctx context.Context, userID uint) ([]models.Friendship, error)
	UpdateStatus(ctx context.Context, friendshipID uint, status models.FriendshipStatus) error
	RemoveFriendship(ctx context.Context, userID1, userID2 uint) error

	// AcceptedFriendIDs returns the set of users with an accepted edge to
	// userID, in either direction. Duplicate edges are deduplicated.
	AcceptedFriendIDs(ctx context.Context, userID uint) (map[uint]struct{}, error)
	// AcceptedFriendIDsForUsers is the batched form, one query for many users.
	AcceptedFriendIDsForUsers(ctx context.Context, userIDs []uint) (map[uint]map[uint]struct{}, error)
	// OutstandingEdgeIDs returns users with a pending edge to userID in
	// either direction. Rejected edges are excluded.
	OutstandingEdgeIDs(ctx context.Context, userID uint) (map[uint]struct{}, error)
}

// friendRepository implements FriendRepository
type friendRepository struct {
	db *gorm.DB
}

// NewFriendRepository creates a new friend repository
func NewFriendRepository(db *gorm.DB) FriendRepository {
	return &friendRepository{db: db}
}

func (r *friendRepository) Create(ctx context.Context, friendship *models.Friendship) error {
	if err := r.db.WithContext(ctx).Create(friendship).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *friendRepository) GetByID(ctx context.Context, id uint) (*models.Friendship, error) {
	var friendship models.Friendship
	if err := r.db.WithContext(ctx).Preload("Requester").Preload("Addressee").First(&friendship, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Friendship", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &friendship, nil
}

func (r *friendRepository) GetFriendshipBetweenUsers(ctx context.Context, userID1, userID2 uint) (*models.Friendship, error) {
	var friendship models.Friendship

	// The edge may exist in either direction; rejected edges are ignored
	// so a new request can be sent after a rejection.
	if err := r.db.WithContext(ctx).
		Where("((requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)) AND status != ?",
			userID1, userID2, userID2, userID1, models.FriendshipStatusRejected).
		First(&friendship).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &friendship, nil
}

func (r *friendRepository) GetFriends(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User

	if err := r.db.WithContext(ctx).
		Table("users").
		Joins("JOIN friendships f ON (users.id = f.requester_id OR users.id = f.addressee_id)").
		Where("f.status = ? AND (f.requester_id = ? OR f.addressee_id = ?) AND users.id != ?",
			models.FriendshipStatusAccepted, userID, userID, userID).
		Distinct().
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	return users, nil
}

func (r *friendRepository) GetPendingRequests(ctx context.Context, userID uint) ([]models.Friendship, error) {
	var friendships []models.Friendship

	if err := r.db.WithContext(ctx).
		Where("addressee_id = ? AND status = ?", userID, models.FriendshipStatusPending).
		Preload("Requester").
		Find(&friendships).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	return friendships, nil
}

func (r *friendRepository) GetSentRequests(ctx context.Context, userID uint) ([]models.Friendship, error) {
	var friendships []models.Friendship

	if err := r.db.WithContext(ctx).
		Where("requester_id = ? AND status = ?", userID, models.FriendshipStatusPending).
		Preload("Addressee").
		Find(&friendships).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	return friendships, nil
}

func (r *friendRepository) UpdateStatus(ctx context.Context, friendshipID uint, status models.FriendshipStatus) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where("id = ?", friendshipID).
		Update("status", status).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *friendRepository) RemoveFriendship(ctx context.Context, userID1, userID2 uint) error {
	if err := r.db.WithContext(ctx).
		Where("(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)",
			userID1, userID2, userID2, userID1).
		Delete(&models.Friendship{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *friendRepository) AcceptedFriendIDs(ctx context.Context, userID uint) (map[uint]struct{}, error) {
	var edges []models.Friendship
	if err := r.db.WithContext(ctx).
		Where("status = ? AND (requester_id = ? OR addressee_id = ?)",
			models.FriendshipStatusAccepted, userID, userID).
		Find(&edges).Error; err != nil {
		return nil, models.NewDataUnavailableError(err)
	}

	ids := make(map[uint]struct{}, len(edges))
	for i := range edges {
		ids[edges[i].OtherUser(userID)] = struct{}{}
	}
	return ids, nil
}

func (r *friendRepository) AcceptedFriendIDsForUsers(ctx context.Context, userIDs []uint) (map[uint]map[uint]struct{}, error) {
	result := make(map[uint]map[uint]struct{}, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	for _, id := range userIDs {
		result[id] = make(map[uint]struct{})
	}

	var edges []models.Friendship
	if err := r.db.WithContext(ctx).
		Where("status = ? AND (requester_id IN ? OR addressee_id IN ?)",
			models.FriendshipStatusAccepted, userIDs, userIDs).
		Find(&edges).Error; err != nil {
		return nil, models.NewDataUnavailableError(err)
	}

	for i := range edges {
		e := &edges[i]
		if set, ok := result[e.RequesterID]; ok {
			set[e.AddresseeID] = struct{}{}
		}
		if set, ok := result[e.AddresseeID]; ok {
			set[e.RequesterID] = struct{}{}
		}
	}
	return result, nil
}

func (r *friendRepository) OutstandingEdgeIDs(ctx context.Context, userID uint) (map[uint]struct{}, error) {
	var edges []models.Friendship
	if err := r.db.WithContext(ctx).
		Where("status = ? AND (requester_id = ? OR addressee_id = ?)",
			models.FriendshipStatusPending, userID, userID).
		Find(&edges).Error; err != nil {
		return nil, models.NewDataUnavailableError(err)
	}

	ids := make(map[uint]struct{}, len(edges))
	for i := range edges {
		ids[edges[i].OtherUser(userID)] = struct{}{}
	}
	return ids, nil
}

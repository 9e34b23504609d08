package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/insyd/insyd/internal/models"
	"github.com/insyd/insyd/internal/notify"
)

// FollowService maintains directed follow edges between users.
type FollowService struct {
	db       *gorm.DB
	notifier Notifier
}

// NewFollowService constructs a FollowService.
func NewFollowService(db *gorm.DB, notifier Notifier) (*FollowService, error) {
	if db == nil {
		return nil, errors.New("follow service: db is required")
	}
	return &FollowService{db: db, notifier: notifierOrNoop(notifier)}, nil
}

// Follow creates the edge follower -> following and notifies the followed user.
func (s *FollowService) Follow(ctx context.Context, followerEmail, followingEmail string) (*models.Follow, error) {
	ctx = ensureContext(ctx)
	follower, following, err := s.resolvePair(ctx, followerEmail, followingEmail)
	if err != nil {
		return nil, err
	}

	edge := &models.Follow{FollowerID: follower.ID, FollowingID: following.ID}
	if err := s.db.WithContext(ctx).Create(edge).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrAlreadyFollowing
		}
		return nil, fmt.Errorf("follow service: create follow: %w", err)
	}

	s.notifier.Publish(ctx, notify.Event{
		Type:         models.NotificationFollow,
		Actor:        *follower,
		Subject:      notify.Subject{Kind: models.SubjectUser, ID: following.ID, Title: following.Email},
		Counterparty: following,
	})
	return edge, nil
}

// Unfollow removes the edge follower -> following.
func (s *FollowService) Unfollow(ctx context.Context, followerEmail, followingEmail string) error {
	ctx = ensureContext(ctx)
	follower, following, err := s.resolvePair(ctx, followerEmail, followingEmail)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", follower.ID, following.ID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return fmt.Errorf("follow service: delete follow: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrFollowNotFound
	}
	return nil
}

// ListFollowers returns the users following userID, most recent first.
func (s *FollowService) ListFollowers(ctx context.Context, userID string) ([]models.User, error) {
	ctx = ensureContext(ctx)

	var exists int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&exists).Error; err != nil {
		return nil, fmt.Errorf("follow service: load user: %w", err)
	}
	if exists == 0 {
		return nil, ErrUserNotFound
	}

	var users []models.User
	if err := s.db.WithContext(ctx).
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.following_id = ?", userID).
		Order("follows.created_at DESC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("follow service: list followers: %w", err)
	}
	return users, nil
}

// IsFollowing reports whether candidateID follows targetID.
func (s *FollowService) IsFollowing(ctx context.Context, candidateID, targetID string) (bool, error) {
	ctx = ensureContext(ctx)
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", candidateID, targetID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("follow service: check follow: %w", err)
	}
	return count > 0, nil
}

func (s *FollowService) resolvePair(ctx context.Context, followerEmail, followingEmail string) (*models.User, *models.User, error) {
	if err := requireEmail(followerEmail, "followerEmail"); err != nil {
		return nil, nil, err
	}
	if err := requireEmail(followingEmail, "followingEmail"); err != nil {
		return nil, nil, err
	}
	if followerEmail == followingEmail {
		return nil, nil, ErrSelfFollow
	}

	follower, err := findUserByEmail(ctx, s.db, followerEmail)
	if err != nil {
		return nil, nil, wrapLookup("follow service", err)
	}
	following, err := findUserByEmail(ctx, s.db, followingEmail)
	if err != nil {
		return nil, nil, wrapLookup("follow service", err)
	}
	return follower, following, nil
}

func wrapLookup(service string, err error) error {
	if errors.Is(err, ErrUserNotFound) {
		return ErrUserNotFound
	}
	return fmt.Errorf("%s: %w", service, err)
}

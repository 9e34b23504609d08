package notify

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/insyd/insyd/internal/models"
)

// AudiencePolicy selects who hears about newly created content.
type AudiencePolicy string

const (
	// AudienceFollowers notifies the author's current followers.
	AudienceFollowers AudiencePolicy = "followers"
	// AudienceBroadcast notifies every other user.
	AudienceBroadcast AudiencePolicy = "broadcast"
)

// ParseAudiencePolicy validates a configured policy name.
func ParseAudiencePolicy(value string) (AudiencePolicy, error) {
	switch AudiencePolicy(value) {
	case AudienceFollowers, AudienceBroadcast:
		return AudiencePolicy(value), nil
	case "":
		return AudienceFollowers, nil
	default:
		return "", fmt.Errorf("notify: unknown audience policy %q", value)
	}
}

// Scope describes how an event's recipients are found.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeFollowers
	ScopeEveryone
	ScopeCounterparty
	ScopeExplicit
)

// ScopeFor maps an event type to its audience scope under the policy.
func (p AudiencePolicy) ScopeFor(eventType string) Scope {
	switch eventType {
	case models.NotificationNewBlog, models.NotificationNewJob:
		if p == AudienceBroadcast {
			return ScopeEveryone
		}
		return ScopeFollowers
	case models.NotificationLike, models.NotificationApplication, models.NotificationFollow:
		return ScopeCounterparty
	case models.NotificationContentRemoved:
		return ScopeExplicit
	default:
		return ScopeNone
	}
}

// Directory answers the user queries audience resolution needs.
type Directory interface {
	Followers(ctx context.Context, userID string) ([]models.User, error)
	EveryoneExcept(ctx context.Context, userID string) ([]models.User, error)
}

// StoreDirectory resolves audiences from the relational store.
type StoreDirectory struct {
	db *gorm.DB
}

// NewStoreDirectory constructs a Directory over db.
func NewStoreDirectory(db *gorm.DB) *StoreDirectory {
	return &StoreDirectory{db: db}
}

// Followers returns users following userID at the time of the call.
func (d *StoreDirectory) Followers(ctx context.Context, userID string) ([]models.User, error) {
	var users []models.User
	err := d.db.WithContext(ctx).
		Where("id IN (?)", d.db.Model(&models.Follow{}).Select("follower_id").Where("following_id = ?", userID)).
		Order("created_at ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("notify: load followers: %w", err)
	}
	return users, nil
}

// EveryoneExcept returns every user other than userID.
func (d *StoreDirectory) EveryoneExcept(ctx context.Context, userID string) ([]models.User, error) {
	var users []models.User
	if err := d.db.WithContext(ctx).Where("id <> ?", userID).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("notify: load users: %w", err)
	}
	return users, nil
}

// Resolve computes the recipients of ev. The actor is never part of the result
// and each user appears at most once.
func Resolve(ctx context.Context, policy AudiencePolicy, dir Directory, ev Event) ([]models.User, error) {
	var (
		candidates []models.User
		err        error
	)

	switch policy.ScopeFor(ev.Type) {
	case ScopeFollowers:
		candidates, err = dir.Followers(ctx, ev.Actor.ID)
	case ScopeEveryone:
		candidates, err = dir.EveryoneExcept(ctx, ev.Actor.ID)
	case ScopeCounterparty:
		if ev.Counterparty != nil {
			candidates = []models.User{*ev.Counterparty}
		}
	case ScopeExplicit:
		candidates = ev.Recipients
	default:
		return nil, fmt.Errorf("notify: unsupported event type %q", ev.Type)
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(candidates))
	recipients := make([]models.User, 0, len(candidates))
	for _, user := range candidates {
		if user.ID == "" || user.ID == ev.Actor.ID {
			continue
		}
		if _, dup := seen[user.ID]; dup {
			continue
		}
		seen[user.ID] = struct{}{}
		recipients = append(recipients, user)
	}
	return recipients, nil
}

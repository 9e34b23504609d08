package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/insyd/insyd/internal/models"
)

// UserSummary is a directory entry as seen by the requesting user.
type UserSummary struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        *string   `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
	IsFollowing bool      `json:"isFollowing"`
	Followers   int64     `json:"followers"`
	Following   int64     `json:"following"`
	Blogs       int64     `json:"blogs"`
	Jobs        int64     `json:"jobs"`
}

// UserService resolves email identities to users.
type UserService struct {
	db       *gorm.DB
	notifier Notifier
}

// NewUserService constructs a UserService. A nil notifier disables welcome emails.
func NewUserService(db *gorm.DB, notifier Notifier) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db, notifier: notifierOrNoop(notifier)}, nil
}

// Register returns the user owning email, creating it on first contact.
// created reports whether this call inserted the row. Concurrent calls for the
// same email converge on a single row through the unique index.
func (s *UserService) Register(ctx context.Context, email string, name *string) (user *models.User, created bool, err error) {
	ctx = ensureContext(ctx)
	if err := requireEmail(email, "email"); err != nil {
		return nil, false, err
	}

	existing, err := findUserByEmail(ctx, s.db, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, fmt.Errorf("user service: %w", err)
	}

	candidate := &models.User{Email: email, Name: trimmedOrNil(name)}
	if err := s.db.WithContext(ctx).Create(candidate).Error; err != nil {
		if !isUniqueConstraintError(err) {
			return nil, false, fmt.Errorf("user service: create user: %w", err)
		}
		winner, lookupErr := findUserByEmail(ctx, s.db, email)
		if lookupErr != nil {
			return nil, false, fmt.Errorf("user service: reload user after conflict: %w", lookupErr)
		}
		return winner, false, nil
	}

	s.notifier.Welcome(ctx, *candidate)
	return candidate, true, nil
}

// FindByEmail returns the registered user for email or ErrUserNotFound.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx = ensureContext(ctx)
	if err := requireEmail(email, "email"); err != nil {
		return nil, err
	}
	return findUserByEmail(ctx, s.db, email)
}

// FindByID returns the user with id or ErrUserNotFound.
func (s *UserService) FindByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}

// ListWithFollowStatus lists every user except currentEmail, newest first,
// annotated with whether the current user follows them and relation counts.
func (s *UserService) ListWithFollowStatus(ctx context.Context, currentEmail string) ([]UserSummary, error) {
	ctx = ensureContext(ctx)
	if err := requireEmail(currentEmail, "currentUser"); err != nil {
		return nil, err
	}
	current, err := findUserByEmail(ctx, s.db, currentEmail)
	if err != nil {
		return nil, err
	}

	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("id <> ?", current.ID).
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("user service: list users: %w", err)
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	followers, err := countBy(ctx, s.db, &models.Follow{}, "following_id", ids)
	if err != nil {
		return nil, fmt.Errorf("user service: count followers: %w", err)
	}
	following, err := countBy(ctx, s.db, &models.Follow{}, "follower_id", ids)
	if err != nil {
		return nil, fmt.Errorf("user service: count following: %w", err)
	}
	blogs, err := countBy(ctx, s.db, &models.Blog{}, "author_id", ids)
	if err != nil {
		return nil, fmt.Errorf("user service: count blogs: %w", err)
	}
	jobs, err := countBy(ctx, s.db, &models.Job{}, "author_id", ids)
	if err != nil {
		return nil, fmt.Errorf("user service: count jobs: %w", err)
	}

	var followedIDs []string
	if err := s.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ?", current.ID).
		Pluck("following_id", &followedIDs).Error; err != nil {
		return nil, fmt.Errorf("user service: load follow status: %w", err)
	}
	followed := make(map[string]struct{}, len(followedIDs))
	for _, id := range followedIDs {
		followed[id] = struct{}{}
	}

	summaries := make([]UserSummary, 0, len(users))
	for _, u := range users {
		_, isFollowing := followed[u.ID]
		summaries = append(summaries, UserSummary{
			ID:          u.ID,
			Email:       u.Email,
			Name:        u.Name,
			CreatedAt:   u.CreatedAt,
			IsFollowing: isFollowing,
			Followers:   followers[u.ID],
			Following:   following[u.ID],
			Blogs:       blogs[u.ID],
			Jobs:        jobs[u.ID],
		})
	}
	return summaries, nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

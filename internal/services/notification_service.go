package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/insyd/insyd/internal/models"
)

const (
	defaultInboxLimit = 20
	maxInboxLimit     = 100
)

// NotificationDTO represents the API-friendly notification payload.
type NotificationDTO struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	ActorID     *string        `json:"actorId,omitempty"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	SubjectType string         `json:"subjectType,omitempty"`
	SubjectID   *string        `json:"subjectId,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	IsRead      bool           `json:"read"`
	CreatedAt   time.Time      `json:"createdAt"`
	ReadAt      *time.Time     `json:"readAt,omitempty"`
}

// NotificationService is the per-user inbox over notifications written by fan-out.
type NotificationService struct {
	db           *gorm.DB
	defaultLimit int
	now          func() time.Time
}

// NewNotificationService constructs a NotificationService. defaultLimit applies
// when List is called without a limit.
func NewNotificationService(db *gorm.DB, defaultLimit int) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	if defaultLimit <= 0 || defaultLimit > maxInboxLimit {
		defaultLimit = defaultInboxLimit
	}
	return &NotificationService{db: db, defaultLimit: defaultLimit, now: time.Now}, nil
}

// List returns the newest notifications for email. An unknown email yields an
// empty list rather than an error.
func (s *NotificationService) List(ctx context.Context, email string, limit int) ([]NotificationDTO, error) {
	ctx = ensureContext(ctx)
	if err := requireEmail(email, "email"); err != nil {
		return nil, err
	}

	user, err := findUserByEmail(ctx, s.db, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return []NotificationDTO{}, nil
		}
		return nil, fmt.Errorf("notification service: %w", err)
	}

	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > maxInboxLimit {
		limit = maxInboxLimit
	}

	var rows []models.Notification
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}

	return mapNotificationRows(rows), nil
}

// MarkRead flags notificationID as read when it belongs to email. Any other
// case, including an unknown email, reports ErrNotificationNotFound.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, email string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	if err := requireEmail(email, "userEmail"); err != nil {
		return nil, err
	}

	user, err := findUserByEmail(ctx, s.db, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("notification service: %w", err)
	}

	var notification models.Notification
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, user.ID).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}

	if notification.IsRead {
		dto := mapNotification(notification)
		return &dto, nil
	}

	now := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(&notification).
		Updates(map[string]any{
			"is_read": true,
			"read_at": now,
		}).Error; err != nil {
		return nil, fmt.Errorf("notification service: mark read: %w", err)
	}

	notification.IsRead = true
	notification.ReadAt = &now
	dto := mapNotification(notification)
	return &dto, nil
}

// MarkAllRead flags every unread notification of email as read and returns
// how many rows changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, email string) (int64, error) {
	ctx = ensureContext(ctx)
	if err := requireEmail(email, "userEmail"); err != nil {
		return 0, err
	}
	user, err := findUserByEmail(ctx, s.db, email)
	if err != nil {
		return 0, wrapLookup("notification service", err)
	}

	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": s.now().UTC(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: mark all read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// UnreadCount returns the number of unread notifications for email. Unknown
// emails have none.
func (s *NotificationService) UnreadCount(ctx context.Context, email string) (int64, error) {
	ctx = ensureContext(ctx)
	if err := requireEmail(email, "email"); err != nil {
		return 0, err
	}
	user, err := findUserByEmail(ctx, s.db, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("notification service: %w", err)
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("notification service: count unread: %w", err)
	}
	return count, nil
}

// PruneRead deletes read notifications created before cutoff.
func (s *NotificationService) PruneRead(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: prune read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func mapNotificationRows(rows []models.Notification) []NotificationDTO {
	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:          row.ID,
		UserID:      row.UserID,
		ActorID:     row.ActorID,
		Type:        row.Type,
		Title:       row.Title,
		Message:     row.Message,
		SubjectType: row.SubjectType,
		SubjectID:   row.SubjectID,
		Metadata:    decodeJSON(row.Metadata),
		IsRead:      row.IsRead,
		CreatedAt:   row.CreatedAt,
		ReadAt:      row.ReadAt,
	}
}

func decodeJSON(data datatypes.JSON) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

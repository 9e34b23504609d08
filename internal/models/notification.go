package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types written by fan-out.
const (
	NotificationNewBlog        = "new-blog"
	NotificationNewJob         = "new-job"
	NotificationLike           = "like"
	NotificationApplication    = "application"
	NotificationFollow         = "follow"
	NotificationContentRemoved = "content-removed"
)

// Subject kinds referenced by notifications.
const (
	SubjectBlog = "blog"
	SubjectJob  = "job"
	SubjectUser = "user"
)

// Notification represents an in-app notification for a user.
type Notification struct {
	BaseModel

	UserID      string         `gorm:"type:varchar(36);not null;index:idx_notifications_inbox,priority:1" json:"userId"`
	ActorID     *string        `gorm:"type:varchar(36)" json:"actorId"`
	Type        string         `gorm:"type:varchar(32);not null" json:"type"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`
	Message     string         `gorm:"type:text" json:"message"`
	SubjectType string         `gorm:"type:varchar(16)" json:"subjectType,omitempty"`
	SubjectID   *string        `gorm:"type:varchar(36);index" json:"subjectId,omitempty"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`

	IsRead bool       `gorm:"default:false;index:idx_notifications_inbox,priority:2" json:"isRead"`
	ReadAt *time.Time `json:"readAt"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

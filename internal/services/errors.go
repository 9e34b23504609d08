package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/insyd/insyd/pkg/errors"
)

var (
	ErrUserNotFound         = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	ErrBlogNotFound         = apperrors.New("BLOG_NOT_FOUND", "Blog not found", http.StatusNotFound)
	ErrJobNotFound          = apperrors.New("JOB_NOT_FOUND", "Job not found", http.StatusNotFound)
	ErrFollowNotFound       = apperrors.New("FOLLOW_NOT_FOUND", "Not following this user", http.StatusNotFound)
	ErrNotificationNotFound = apperrors.New("NOTIFICATION_NOT_FOUND", "Notification not found", http.StatusNotFound)

	ErrSelfFollow       = apperrors.New("SELF_FOLLOW", "You cannot follow yourself", http.StatusBadRequest)
	ErrAlreadyFollowing = apperrors.ErrAlreadyExists.Derive("ALREADY_FOLLOWING", "Already following this user")
	ErrAlreadyLiked     = apperrors.ErrAlreadyExists.Derive("ALREADY_LIKED", "Blog already liked")
	ErrAlreadyApplied   = apperrors.ErrAlreadyExists.Derive("ALREADY_APPLIED", "Already applied to this job")
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "duplicate entry")
}

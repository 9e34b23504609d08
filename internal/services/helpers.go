package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/insyd/insyd/internal/models"
	apperrors "github.com/insyd/insyd/pkg/errors"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// requireEmail rejects blank identities. Emails are otherwise used verbatim.
func requireEmail(email, field string) error {
	if strings.TrimSpace(email) == "" {
		return apperrors.NewBadRequest(field + " is required")
	}
	return nil
}

func findUserByEmail(ctx context.Context, db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return &user, nil
}

type groupCount struct {
	GroupKey string
	Total    int64
}

// countBy returns COUNT(*) of model rows grouped by column, restricted to keys.
func countBy(ctx context.Context, db *gorm.DB, model any, column string, keys []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(keys))
	if len(keys) == 0 {
		return counts, nil
	}

	var rows []groupCount
	if err := db.WithContext(ctx).
		Model(model).
		Select(column+" AS group_key, COUNT(*) AS total").
		Where(column+" IN ?", keys).
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.GroupKey] = row.Total
	}
	return counts, nil
}

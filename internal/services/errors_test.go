package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "github.com/insyd/insyd/pkg/errors"
)

func TestIsUniqueConstraintError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm", fmt.Errorf("wrap: %w", gorm.ErrDuplicatedKey), true},
		{"postgres", &pgconn.PgError{Code: "23505"}, true},
		{"postgres other", &pgconn.PgError{Code: "23503"}, false},
		{"mysql", &mysql.MySQLError{Number: 1062}, true},
		{"sqlite text", errors.New("UNIQUE constraint failed: users.email"), true},
		{"foreign key", errors.New("FOREIGN KEY constraint failed"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, isUniqueConstraintError(tc.err))
		})
	}
}

func TestParseLikePolicy(t *testing.T) {
	policy, err := ParseLikePolicy("")
	require.NoError(t, err)
	require.Equal(t, LikeToggle, policy)

	policy, err = ParseLikePolicy("reject")
	require.NoError(t, err)
	require.Equal(t, LikeReject, policy)

	_, err = ParseLikePolicy("ignore")
	require.Error(t, err)
}

func TestDuplicateErrorsAreAlreadyExists(t *testing.T) {
	for _, err := range []error{ErrAlreadyFollowing, ErrAlreadyLiked, ErrAlreadyApplied} {
		require.ErrorIs(t, err, apperrors.ErrAlreadyExists)
		require.Equal(t, http.StatusBadRequest, apperrors.FromError(err).StatusCode)
	}
	require.NotErrorIs(t, ErrSelfFollow, apperrors.ErrAlreadyExists)
}

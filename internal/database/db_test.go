package database

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/insyd/insyd/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Exec("SELECT 1").Error)
	require.NoError(t, Ping(context.Background(), db))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported database driver")
}

func TestAutoMigrateCreatesSchema(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrateAndSeed(db))

	for _, model := range []interface{}{
		&models.User{},
		&models.Follow{},
		&models.Blog{},
		&models.BlogLike{},
		&models.Job{},
		&models.JobApplication{},
		&models.Notification{},
	} {
		require.True(t, db.Migrator().HasTable(model), "missing table for %T", model)
	}
}

func TestUniqueIndexesReportDuplicatedKey(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	require.NoError(t, db.Create(&models.User{Email: "a@x.com"}).Error)
	err := db.Create(&models.User{Email: "a@x.com"}).Error
	require.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "expected duplicated key, got %v", err)

	// Email is matched case-sensitively.
	require.NoError(t, db.Create(&models.User{Email: "A@x.com"}).Error)

	var a, b models.User
	require.NoError(t, db.Where("email = ?", "a@x.com").First(&a).Error)
	require.NoError(t, db.Where("email = ?", "A@x.com").First(&b).Error)

	require.NoError(t, db.Create(&models.Follow{FollowerID: a.ID, FollowingID: b.ID}).Error)
	err = db.Create(&models.Follow{FollowerID: a.ID, FollowingID: b.ID}).Error
	require.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "expected duplicated key, got %v", err)
}

func TestFollowRejectsSelfEdge(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	user := models.User{Email: "self@x.com"}
	require.NoError(t, db.Create(&user).Error)

	err := db.Create(&models.Follow{FollowerID: user.ID, FollowingID: user.ID}).Error
	require.Error(t, err)
	require.False(t, errors.Is(err, gorm.ErrDuplicatedKey))

	var count int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestDeletingBlogCascadesLikes(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	author := models.User{Email: "author@x.com"}
	reader := models.User{Email: "reader@x.com"}
	require.NoError(t, db.Create(&author).Error)
	require.NoError(t, db.Create(&reader).Error)

	blog := models.Blog{Title: "T", Content: "C", AuthorID: author.ID}
	require.NoError(t, db.Create(&blog).Error)
	require.NoError(t, db.Create(&models.BlogLike{UserID: reader.ID, BlogID: blog.ID}).Error)

	require.NoError(t, db.Delete(&models.Blog{}, "id = ?", blog.ID).Error)

	var likes int64
	require.NoError(t, db.Model(&models.BlogLike{}).Where("blog_id = ?", blog.ID).Count(&likes).Error)
	require.Zero(t, likes)
}

func TestCloseNilHandle(t *testing.T) {
	require.NoError(t, Close(nil))
	require.Error(t, Ping(context.Background(), nil))
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite", Path: "memory:" + uuid.NewString(), MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = Close(db)
	})

	return db
}

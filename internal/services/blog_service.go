package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/insyd/insyd/internal/models"
	"github.com/insyd/insyd/internal/notify"
	apperrors "github.com/insyd/insyd/pkg/errors"
)

// AuthorDTO is the public projection of a content author.
type AuthorDTO struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

// BlogDTO is a blog with its author and like count.
type BlogDTO struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"authorId"`
	Author    AuthorDTO `json:"author"`
	Likes     int64     `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateBlogInput carries the fields of a new blog.
type CreateBlogInput struct {
	AuthorEmail string
	Title       string
	Content     string
}

// CreatedBlog is the outcome of BlogService.Create.
type CreatedBlog struct {
	Blog              BlogDTO
	NotifiedFollowers int
}

// LikeResult reports the like state after BlogService.Like.
type LikeResult struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

// BlogService is the store for blogs and their likes.
type BlogService struct {
	db       *gorm.DB
	notifier Notifier
	opts     ContentOptions
}

// NewBlogService constructs a BlogService.
func NewBlogService(db *gorm.DB, notifier Notifier, opts ContentOptions) (*BlogService, error) {
	if db == nil {
		return nil, errors.New("blog service: db is required")
	}
	return &BlogService{db: db, notifier: notifierOrNoop(notifier), opts: opts.normalised()}, nil
}

// List returns every blog, newest first, with author and like count.
func (s *BlogService) List(ctx context.Context) ([]BlogDTO, error) {
	ctx = ensureContext(ctx)

	var blogs []models.Blog
	if err := s.db.WithContext(ctx).
		Preload("Author").
		Order("created_at DESC").
		Find(&blogs).Error; err != nil {
		return nil, fmt.Errorf("blog service: list blogs: %w", err)
	}

	ids := make([]string, 0, len(blogs))
	for _, blog := range blogs {
		ids = append(ids, blog.ID)
	}
	likes, err := countBy(ctx, s.db, &models.BlogLike{}, "blog_id", ids)
	if err != nil {
		return nil, fmt.Errorf("blog service: count likes: %w", err)
	}

	out := make([]BlogDTO, 0, len(blogs))
	for _, blog := range blogs {
		out = append(out, mapBlog(blog, likes[blog.ID]))
	}
	return out, nil
}

// Create stores a blog for a registered author and notifies the audience.
func (s *BlogService) Create(ctx context.Context, input CreateBlogInput) (*CreatedBlog, error) {
	ctx = ensureContext(ctx)
	if err := requireEmail(input.AuthorEmail, "email"); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" || content == "" {
		return nil, apperrors.NewBadRequest("email, title and content are required")
	}

	author, err := findUserByEmail(ctx, s.db, input.AuthorEmail)
	if err != nil {
		return nil, wrapLookup("blog service", err)
	}

	blog := models.Blog{Title: title, Content: content, AuthorID: author.ID}
	if err := s.db.WithContext(ctx).Create(&blog).Error; err != nil {
		return nil, fmt.Errorf("blog service: create blog: %w", err)
	}
	blog.Author = author

	result := s.notifier.Publish(ctx, notify.Event{
		Type:    models.NotificationNewBlog,
		Actor:   *author,
		Subject: notify.Subject{Kind: models.SubjectBlog, ID: blog.ID, Title: blog.Title, Content: blog.Content},
	})

	return &CreatedBlog{Blog: mapBlog(blog, 0), NotifiedFollowers: result.Written}, nil
}

// Delete removes a blog owned by requesterEmail together with its likes and
// the notifications that reference it.
func (s *BlogService) Delete(ctx context.Context, blogID, requesterEmail string) error {
	ctx = ensureContext(ctx)
	if err := requireEmail(requesterEmail, "userEmail"); err != nil {
		return err
	}
	requester, err := findUserByEmail(ctx, s.db, requesterEmail)
	if err != nil {
		return wrapLookup("blog service", err)
	}
	blog, err := s.load(ctx, blogID)
	if err != nil {
		return err
	}
	if blog.AuthorID != requester.ID {
		return apperrors.ErrForbidden
	}

	var likers []models.User
	if s.opts.NotifyOnDelete {
		if err := s.db.WithContext(ctx).
			Joins("JOIN blog_likes ON blog_likes.user_id = users.id").
			Where("blog_likes.blog_id = ?", blog.ID).
			Find(&likers).Error; err != nil {
			return fmt.Errorf("blog service: load likers: %w", err)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("blog_id = ?", blog.ID).Delete(&models.BlogLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("subject_type = ? AND subject_id = ?", models.SubjectBlog, blog.ID).
			Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Blog{}, "id = ?", blog.ID).Error
	})
	if err != nil {
		return fmt.Errorf("blog service: delete blog: %w", err)
	}

	if len(likers) > 0 {
		s.notifier.Publish(ctx, notify.Event{
			Type:       models.NotificationContentRemoved,
			Actor:      *requester,
			Subject:    notify.Subject{Kind: models.SubjectBlog, Title: blog.Title},
			Recipients: likers,
		})
	}
	return nil
}

// Like records userEmail's like on blogID. Under LikeToggle a repeated like
// removes it; under LikeReject it fails with ErrAlreadyLiked.
func (s *BlogService) Like(ctx context.Context, blogID, userEmail string) (*LikeResult, error) {
	ctx = ensureContext(ctx)
	if err := requireEmail(userEmail, "userEmail"); err != nil {
		return nil, err
	}
	blog, err := s.load(ctx, blogID)
	if err != nil {
		return nil, err
	}
	user, err := findUserByEmail(ctx, s.db, userEmail)
	if err != nil {
		return nil, wrapLookup("blog service", err)
	}

	var existing models.BlogLike
	err = s.db.WithContext(ctx).Where("user_id = ? AND blog_id = ?", user.ID, blog.ID).First(&existing).Error
	switch {
	case err == nil:
		if s.opts.LikePolicy == LikeReject {
			return nil, ErrAlreadyLiked
		}
		if err := s.db.WithContext(ctx).Delete(&existing).Error; err != nil {
			return nil, fmt.Errorf("blog service: remove like: %w", err)
		}
		likes, err := s.countLikes(ctx, blog.ID)
		if err != nil {
			return nil, err
		}
		return &LikeResult{Liked: false, Likes: likes}, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("blog service: load like: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(&models.BlogLike{UserID: user.ID, BlogID: blog.ID}).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrAlreadyLiked
		}
		return nil, fmt.Errorf("blog service: create like: %w", err)
	}

	if blog.Author != nil {
		s.notifier.Publish(ctx, notify.Event{
			Type:         models.NotificationLike,
			Actor:        *user,
			Subject:      notify.Subject{Kind: models.SubjectBlog, ID: blog.ID, Title: blog.Title},
			Counterparty: blog.Author,
		})
	}

	likes, err := s.countLikes(ctx, blog.ID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{Liked: true, Likes: likes}, nil
}

func (s *BlogService) load(ctx context.Context, blogID string) (*models.Blog, error) {
	if strings.TrimSpace(blogID) == "" {
		return nil, ErrBlogNotFound
	}
	var blog models.Blog
	if err := s.db.WithContext(ctx).Preload("Author").First(&blog, "id = ?", blogID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlogNotFound
		}
		return nil, fmt.Errorf("blog service: load blog: %w", err)
	}
	return &blog, nil
}

func (s *BlogService) countLikes(ctx context.Context, blogID string) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.BlogLike{}).Where("blog_id = ?", blogID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("blog service: count likes: %w", err)
	}
	return count, nil
}

func mapBlog(blog models.Blog, likes int64) BlogDTO {
	dto := BlogDTO{
		ID:        blog.ID,
		Title:     blog.Title,
		Content:   blog.Content,
		AuthorID:  blog.AuthorID,
		Likes:     likes,
		CreatedAt: blog.CreatedAt,
		UpdatedAt: blog.UpdatedAt,
	}
	if blog.Author != nil {
		dto.Author = mapAuthor(*blog.Author)
	}
	return dto
}

func mapAuthor(user models.User) AuthorDTO {
	return AuthorDTO{ID: user.ID, Email: user.Email, Name: user.Name}
}

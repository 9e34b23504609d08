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

// JobDTO is a job listing with its author and application count.
type JobDTO struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Company      string    `json:"company"`
	AuthorID     string    `json:"authorId"`
	Author       AuthorDTO `json:"author"`
	Applications int64     `json:"applications"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CreateJobInput carries the fields of a new job listing.
type CreateJobInput struct {
	AuthorEmail string
	Title       string
	Company     string
}

// CreatedJob is the outcome of JobService.Create.
type CreatedJob struct {
	Job               JobDTO
	NotifiedFollowers int
}

// JobService is the store for job listings and applications.
type JobService struct {
	db       *gorm.DB
	notifier Notifier
	opts     ContentOptions
}

// NewJobService constructs a JobService.
func NewJobService(db *gorm.DB, notifier Notifier, opts ContentOptions) (*JobService, error) {
	if db == nil {
		return nil, errors.New("job service: db is required")
	}
	return &JobService{db: db, notifier: notifierOrNoop(notifier), opts: opts.normalised()}, nil
}

// List returns every job, newest first, with author and application count.
func (s *JobService) List(ctx context.Context) ([]JobDTO, error) {
	ctx = ensureContext(ctx)

	var jobs []models.Job
	if err := s.db.WithContext(ctx).
		Preload("Author").
		Order("created_at DESC").
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("job service: list jobs: %w", err)
	}

	ids := make([]string, 0, len(jobs))
	for _, job := range jobs {
		ids = append(ids, job.ID)
	}
	applications, err := countBy(ctx, s.db, &models.JobApplication{}, "job_id", ids)
	if err != nil {
		return nil, fmt.Errorf("job service: count applications: %w", err)
	}

	out := make([]JobDTO, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, mapJob(job, applications[job.ID]))
	}
	return out, nil
}

// Create stores a job for a registered author and notifies the audience.
func (s *JobService) Create(ctx context.Context, input CreateJobInput) (*CreatedJob, error) {
	ctx = ensureContext(ctx)
	if err := requireEmail(input.AuthorEmail, "email"); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	company := strings.TrimSpace(input.Company)
	if title == "" || company == "" {
		return nil, apperrors.NewBadRequest("email, title and company are required")
	}

	author, err := findUserByEmail(ctx, s.db, input.AuthorEmail)
	if err != nil {
		return nil, wrapLookup("job service", err)
	}

	job := models.Job{Title: title, Company: company, AuthorID: author.ID}
	if err := s.db.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, fmt.Errorf("job service: create job: %w", err)
	}
	job.Author = author

	result := s.notifier.Publish(ctx, notify.Event{
		Type:    models.NotificationNewJob,
		Actor:   *author,
		Subject: notify.Subject{Kind: models.SubjectJob, ID: job.ID, Title: job.Title, Company: job.Company},
	})

	return &CreatedJob{Job: mapJob(job, 0), NotifiedFollowers: result.Written}, nil
}

// Delete removes a job owned by requesterEmail together with its
// applications and the notifications that reference it.
func (s *JobService) Delete(ctx context.Context, jobID, requesterEmail string) error {
	ctx = ensureContext(ctx)
	if err := requireEmail(requesterEmail, "userEmail"); err != nil {
		return err
	}
	requester, err := findUserByEmail(ctx, s.db, requesterEmail)
	if err != nil {
		return wrapLookup("job service", err)
	}
	job, err := s.load(ctx, jobID)
	if err != nil {
		return err
	}
	if job.AuthorID != requester.ID {
		return apperrors.ErrForbidden
	}

	var applicants []models.User
	if s.opts.NotifyOnDelete {
		if err := s.db.WithContext(ctx).
			Joins("JOIN job_applications ON job_applications.user_id = users.id").
			Where("job_applications.job_id = ?", job.ID).
			Find(&applicants).Error; err != nil {
			return fmt.Errorf("job service: load applicants: %w", err)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", job.ID).Delete(&models.JobApplication{}).Error; err != nil {
			return err
		}
		if err := tx.Where("subject_type = ? AND subject_id = ?", models.SubjectJob, job.ID).
			Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Job{}, "id = ?", job.ID).Error
	})
	if err != nil {
		return fmt.Errorf("job service: delete job: %w", err)
	}

	if len(applicants) > 0 {
		s.notifier.Publish(ctx, notify.Event{
			Type:       models.NotificationContentRemoved,
			Actor:      *requester,
			Subject:    notify.Subject{Kind: models.SubjectJob, Title: job.Title, Company: job.Company},
			Recipients: applicants,
		})
	}
	return nil
}

// Apply records userEmail's application to jobID and notifies the job author.
// Applications cannot be withdrawn; a second attempt fails with ErrAlreadyApplied.
func (s *JobService) Apply(ctx context.Context, jobID, userEmail string) (int64, error) {
	ctx = ensureContext(ctx)
	if err := requireEmail(userEmail, "userEmail"); err != nil {
		return 0, err
	}
	job, err := s.load(ctx, jobID)
	if err != nil {
		return 0, err
	}
	user, err := findUserByEmail(ctx, s.db, userEmail)
	if err != nil {
		return 0, wrapLookup("job service", err)
	}

	if err := s.db.WithContext(ctx).Create(&models.JobApplication{UserID: user.ID, JobID: job.ID}).Error; err != nil {
		if isUniqueConstraintError(err) {
			return 0, ErrAlreadyApplied
		}
		return 0, fmt.Errorf("job service: create application: %w", err)
	}

	if job.Author != nil {
		s.notifier.Publish(ctx, notify.Event{
			Type:         models.NotificationApplication,
			Actor:        *user,
			Subject:      notify.Subject{Kind: models.SubjectJob, ID: job.ID, Title: job.Title, Company: job.Company},
			Counterparty: job.Author,
		})
	}

	return s.countApplications(ctx, job.ID)
}

// CountApplications returns the number of applications to jobID.
func (s *JobService) CountApplications(ctx context.Context, jobID string) (int64, error) {
	ctx = ensureContext(ctx)
	if _, err := s.load(ctx, jobID); err != nil {
		return 0, err
	}
	return s.countApplications(ctx, jobID)
}

func (s *JobService) load(ctx context.Context, jobID string) (*models.Job, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, ErrJobNotFound
	}
	var job models.Job
	if err := s.db.WithContext(ctx).Preload("Author").First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("job service: load job: %w", err)
	}
	return &job, nil
}

func (s *JobService) countApplications(ctx context.Context, jobID string) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.JobApplication{}).Where("job_id = ?", jobID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("job service: count applications: %w", err)
	}
	return count, nil
}

func mapJob(job models.Job, applications int64) JobDTO {
	dto := JobDTO{
		ID:           job.ID,
		Title:        job.Title,
		Company:      job.Company,
		AuthorID:     job.AuthorID,
		Applications: applications,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
	if job.Author != nil {
		dto.Author = mapAuthor(*job.Author)
	}
	return dto
}

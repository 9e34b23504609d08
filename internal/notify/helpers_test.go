package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/insyd/insyd/internal/events"
	"github.com/insyd/insyd/internal/models"
	"github.com/insyd/insyd/pkg/mail"
)

type recordingMailer struct {
	mu     sync.Mutex
	sent   []mail.Message
	failTo map[string]error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, to := range msg.To {
		if err, ok := m.failTo[to]; ok {
			return err
		}
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.sent {
		out = append(out, msg.To...)
	}
	return out
}

type recordingMailbox struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (m *recordingMailbox) Enqueue(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *recordingMailbox) to() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.messages {
		out = append(out, msg.To...)
	}
	return out
}

type recordingPublisher struct {
	activities []events.Activity
	err        error
}

func (p *recordingPublisher) Publish(_ context.Context, activity events.Activity) error {
	p.activities = append(p.activities, activity)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type staticDirectory struct {
	followers []models.User
	everyone  []models.User
	err       error
}

func (d staticDirectory) Followers(context.Context, string) ([]models.User, error) {
	return d.followers, d.err
}

func (d staticDirectory) EveryoneExcept(context.Context, string) ([]models.User, error) {
	return d.everyone, d.err
}

var errDirectory = errors.New("directory unavailable")

func mustCreateUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{Email: email}
	require.NoError(t, db.Create(&user).Error)
	// Keep created_at ordering deterministic on coarse clocks.
	time.Sleep(time.Millisecond)
	return user
}

func mustFollow(t *testing.T, db *gorm.DB, follower, following models.User) {
	t.Helper()
	require.NoError(t, db.Create(&models.Follow{FollowerID: follower.ID, FollowingID: following.ID}).Error)
}

func inboxOf(t *testing.T, db *gorm.DB, user models.User) []models.Notification {
	t.Helper()
	var rows []models.Notification
	require.NoError(t, db.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&rows).Error)
	return rows
}

package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/insyd/insyd/internal/database/testutil"
	"github.com/insyd/insyd/internal/models"
	"github.com/insyd/insyd/internal/notify"
	"github.com/insyd/insyd/pkg/mail"
)

type capturingMailbox struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (m *capturingMailbox) Enqueue(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *capturingMailbox) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.messages {
		out = append(out, msg.To...)
	}
	return out
}

func (m *capturingMailbox) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.messages {
		out = append(out, msg.Subject)
	}
	return out
}

func (m *capturingMailbox) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

type serviceFixture struct {
	db            *gorm.DB
	mailbox       *capturingMailbox
	engine        *notify.Engine
	users         *UserService
	follows       *FollowService
	blogs         *BlogService
	jobs          *JobService
	notifications *NotificationService
}

func newFixture(t *testing.T, opts ContentOptions, engineOpts ...notify.Option) *serviceFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	mailbox := &capturingMailbox{}
	engine, err := notify.NewEngine(db, append([]notify.Option{notify.WithMailbox(mailbox)}, engineOpts...)...)
	require.NoError(t, err)

	users, err := NewUserService(db, engine)
	require.NoError(t, err)
	follows, err := NewFollowService(db, engine)
	require.NoError(t, err)
	blogs, err := NewBlogService(db, engine, opts)
	require.NoError(t, err)
	jobs, err := NewJobService(db, engine, opts)
	require.NoError(t, err)
	inbox, err := NewNotificationService(db, 20)
	require.NoError(t, err)

	return &serviceFixture{
		db:            db,
		mailbox:       mailbox,
		engine:        engine,
		users:         users,
		follows:       follows,
		blogs:         blogs,
		jobs:          jobs,
		notifications: inbox,
	}
}

func (f *serviceFixture) register(t *testing.T, email string) models.User {
	t.Helper()
	user, _, err := f.users.Register(context.Background(), email, nil)
	require.NoError(t, err)
	// Keep created_at ordering deterministic on coarse clocks.
	time.Sleep(time.Millisecond)
	return *user
}

func (f *serviceFixture) inbox(t *testing.T, email string) []NotificationDTO {
	t.Helper()
	items, err := f.notifications.List(context.Background(), email, 0)
	require.NoError(t, err)
	return items
}

func waitTick() {
	time.Sleep(time.Millisecond)
}

package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/insyd/insyd/internal/database/testutil"
	"github.com/insyd/insyd/internal/models"
)

func TestEngineNotifiesFollowersOnly(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	a := mustCreateUser(t, db, "a@x.com")
	b := mustCreateUser(t, db, "b@x.com")
	c := mustCreateUser(t, db, "c@x.com")
	d := mustCreateUser(t, db, "d@x.com")
	mustFollow(t, db, b, a)
	mustFollow(t, db, c, a)

	mailbox := &recordingMailbox{}
	publisher := &recordingPublisher{}
	engine, err := NewEngine(db, WithMailbox(mailbox), WithPublisher(publisher))
	require.NoError(t, err)

	result := engine.Publish(context.Background(), Event{
		Type:    models.NotificationNewBlog,
		Actor:   a,
		Subject: Subject{Kind: models.SubjectBlog, ID: "blog-1", Title: "T", Content: "C"},
	})
	require.Equal(t, Result{Audience: 2, Written: 2}, result)

	for _, follower := range []models.User{b, c} {
		rows := inboxOf(t, db, follower)
		require.Len(t, rows, 1)
		require.Equal(t, models.NotificationNewBlog, rows[0].Type)
		require.Equal(t, "New Blog Post", rows[0].Title)
		require.Equal(t, "a@x.com posted a new blog: T", rows[0].Message)
		require.False(t, rows[0].IsRead)
		require.NotNil(t, rows[0].ActorID)
		require.Equal(t, a.ID, *rows[0].ActorID)
		require.Equal(t, "blog-1", *rows[0].SubjectID)

		var meta map[string]any
		require.NoError(t, json.Unmarshal(rows[0].Metadata, &meta))
		require.Equal(t, "a@x.com", meta["actorEmail"])
	}
	require.Empty(t, inboxOf(t, db, a))
	require.Empty(t, inboxOf(t, db, d))

	require.ElementsMatch(t, []string{"b@x.com", "c@x.com"}, mailbox.to())

	require.Len(t, publisher.activities, 1)
	activity := publisher.activities[0]
	require.Equal(t, models.NotificationNewBlog, activity.Type)
	require.Equal(t, a.ID, activity.ActorID)
	require.ElementsMatch(t, []string{b.ID, c.ID}, activity.Recipients)
	require.Equal(t, 2, activity.Notified)
}

func TestEngineBroadcastPolicyNotifiesEveryoneButActor(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	a := mustCreateUser(t, db, "a@x.com")
	b := mustCreateUser(t, db, "b@x.com")
	c := mustCreateUser(t, db, "c@x.com")

	engine, err := NewEngine(db, WithPolicy(AudienceBroadcast))
	require.NoError(t, err)

	result := engine.Publish(context.Background(), Event{
		Type:    models.NotificationNewJob,
		Actor:   a,
		Subject: Subject{Kind: models.SubjectJob, ID: "job-1", Title: "Architect", Company: "Studio"},
	})
	require.Equal(t, 2, result.Written)
	require.Len(t, inboxOf(t, db, b), 1)
	require.Len(t, inboxOf(t, db, c), 1)
	require.Empty(t, inboxOf(t, db, a))
	require.Equal(t, "New Job: Architect", inboxOf(t, db, b)[0].Title)
}

func TestEngineSkipsSelfInteraction(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	a := mustCreateUser(t, db, "a@x.com")

	mailbox := &recordingMailbox{}
	publisher := &recordingPublisher{}
	engine, err := NewEngine(db, WithMailbox(mailbox), WithPublisher(publisher))
	require.NoError(t, err)

	result := engine.Publish(context.Background(), Event{
		Type:         models.NotificationLike,
		Actor:        a,
		Counterparty: &a,
		Subject:      Subject{Kind: models.SubjectBlog, ID: "blog-1", Title: "Mine"},
	})
	require.Equal(t, Result{}, result)
	require.Empty(t, inboxOf(t, db, a))
	require.Empty(t, mailbox.to())
	require.Empty(t, publisher.activities)
}

func TestEngineIsolatesFailedRows(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	a := mustCreateUser(t, db, "a@x.com")
	b := mustCreateUser(t, db, "b@x.com")
	c := mustCreateUser(t, db, "c@x.com")
	ghost := models.User{BaseModel: models.BaseModel{ID: "missing-user"}, Email: "ghost@x.com"}

	core, logs := observer.New(zap.WarnLevel)
	mailbox := &recordingMailbox{}
	engine, err := NewEngine(db, WithMailbox(mailbox), WithLogger(zap.New(core)))
	require.NoError(t, err)

	result := engine.Publish(context.Background(), Event{
		Type:       models.NotificationContentRemoved,
		Actor:      a,
		Subject:    Subject{Kind: models.SubjectBlog, ID: "blog-1", Title: "Gone"},
		Recipients: []models.User{b, ghost, c},
	})
	require.Equal(t, 3, result.Audience)
	require.Equal(t, 2, result.Written)
	require.Len(t, inboxOf(t, db, b), 1)
	require.Len(t, inboxOf(t, db, c), 1)
	require.ElementsMatch(t, []string{"b@x.com", "ghost@x.com", "c@x.com"}, mailbox.to())
	require.NotZero(t, logs.FilterMessage("write notification").Len())
}

func TestEngineSwallowsDirectoryAndPublisherErrors(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	a := mustCreateUser(t, db, "a@x.com")
	b := mustCreateUser(t, db, "b@x.com")

	engine, err := NewEngine(db, WithDirectory(staticDirectory{err: errDirectory}))
	require.NoError(t, err)
	require.Equal(t, Result{}, engine.Publish(context.Background(), Event{Type: models.NotificationNewBlog, Actor: a}))

	publisher := &recordingPublisher{err: errDirectory}
	engine, err = NewEngine(db, WithPublisher(publisher))
	require.NoError(t, err)
	result := engine.Publish(context.Background(), Event{Type: models.NotificationFollow, Actor: a, Counterparty: &b})
	require.Equal(t, 1, result.Written)
	require.Len(t, publisher.activities, 1)
}

func TestEngineWritesDespiteCancelledRequest(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	a := mustCreateUser(t, db, "a@x.com")
	b := mustCreateUser(t, db, "b@x.com")

	engine, err := NewEngine(db)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := engine.Publish(ctx, Event{Type: models.NotificationFollow, Actor: a, Counterparty: &b})
	require.Equal(t, 1, result.Written)
}

func TestEngineWelcome(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	mailbox := &recordingMailbox{}
	engine, err := NewEngine(db, WithMailbox(mailbox), WithClock(func() time.Time { return time.Unix(0, 0) }))
	require.NoError(t, err)

	engine.Welcome(context.Background(), models.User{Email: "new@x.com"})
	require.Len(t, mailbox.messages, 1)
	require.Equal(t, "Welcome to Insyd!", mailbox.messages[0].Subject)
}

func TestNewEngineRequiresDB(t *testing.T) {
	_, err := NewEngine(nil)
	require.Error(t, err)
}

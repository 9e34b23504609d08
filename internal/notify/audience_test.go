package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/insyd/insyd/internal/database/testutil"
	"github.com/insyd/insyd/internal/models"
)

func TestParseAudiencePolicy(t *testing.T) {
	policy, err := ParseAudiencePolicy("broadcast")
	require.NoError(t, err)
	require.Equal(t, AudienceBroadcast, policy)

	policy, err = ParseAudiencePolicy("")
	require.NoError(t, err)
	require.Equal(t, AudienceFollowers, policy)

	_, err = ParseAudiencePolicy("everyone")
	require.Error(t, err)
}

func TestScopeFor(t *testing.T) {
	cases := []struct {
		policy    AudiencePolicy
		eventType string
		want      Scope
	}{
		{AudienceFollowers, models.NotificationNewBlog, ScopeFollowers},
		{AudienceFollowers, models.NotificationNewJob, ScopeFollowers},
		{AudienceBroadcast, models.NotificationNewBlog, ScopeEveryone},
		{AudienceBroadcast, models.NotificationNewJob, ScopeEveryone},
		{AudienceBroadcast, models.NotificationLike, ScopeCounterparty},
		{AudienceFollowers, models.NotificationApplication, ScopeCounterparty},
		{AudienceFollowers, models.NotificationFollow, ScopeCounterparty},
		{AudienceFollowers, models.NotificationContentRemoved, ScopeExplicit},
		{AudienceFollowers, "unknown", ScopeNone},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, tc.policy.ScopeFor(tc.eventType), "%s/%s", tc.policy, tc.eventType)
	}
}

func TestResolveExcludesActorAndDuplicates(t *testing.T) {
	actor := models.User{BaseModel: models.BaseModel{ID: "a"}, Email: "a@x.com"}
	b := models.User{BaseModel: models.BaseModel{ID: "b"}, Email: "b@x.com"}
	c := models.User{BaseModel: models.BaseModel{ID: "c"}, Email: "c@x.com"}
	dir := staticDirectory{followers: []models.User{b, actor, c, b}}

	got, err := Resolve(context.Background(), AudienceFollowers, dir, Event{Type: models.NotificationNewBlog, Actor: actor})
	require.NoError(t, err)
	require.Equal(t, []models.User{b, c}, got)
}

func TestResolveCounterparty(t *testing.T) {
	actor := models.User{BaseModel: models.BaseModel{ID: "a"}}
	author := models.User{BaseModel: models.BaseModel{ID: "b"}}

	got, err := Resolve(context.Background(), AudienceFollowers, staticDirectory{}, Event{
		Type:         models.NotificationLike,
		Actor:        actor,
		Counterparty: &author,
	})
	require.NoError(t, err)
	require.Equal(t, []models.User{author}, got)

	self, err := Resolve(context.Background(), AudienceFollowers, staticDirectory{}, Event{
		Type:         models.NotificationLike,
		Actor:        actor,
		Counterparty: &actor,
	})
	require.NoError(t, err)
	require.Empty(t, self)
}

func TestResolveBroadcastUsesEveryone(t *testing.T) {
	actor := models.User{BaseModel: models.BaseModel{ID: "a"}}
	d := models.User{BaseModel: models.BaseModel{ID: "d"}}
	dir := staticDirectory{everyone: []models.User{d}}

	got, err := Resolve(context.Background(), AudienceBroadcast, dir, Event{Type: models.NotificationNewJob, Actor: actor})
	require.NoError(t, err)
	require.Equal(t, []models.User{d}, got)
}

func TestResolvePropagatesDirectoryErrors(t *testing.T) {
	_, err := Resolve(context.Background(), AudienceFollowers, staticDirectory{err: errDirectory}, Event{Type: models.NotificationNewBlog})
	require.ErrorIs(t, err, errDirectory)

	_, err = Resolve(context.Background(), AudienceFollowers, staticDirectory{}, Event{Type: "unknown"})
	require.Error(t, err)
}

func TestStoreDirectory(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	a := mustCreateUser(t, db, "a@x.com")
	b := mustCreateUser(t, db, "b@x.com")
	c := mustCreateUser(t, db, "c@x.com")
	mustCreateUser(t, db, "d@x.com")

	mustFollow(t, db, b, a)
	mustFollow(t, db, c, a)
	mustFollow(t, db, a, b)

	dir := NewStoreDirectory(db)
	ctx := context.Background()

	followers, err := dir.Followers(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, followers, 2)
	require.ElementsMatch(t, []string{b.Email, c.Email}, []string{followers[0].Email, followers[1].Email})

	everyone, err := dir.EveryoneExcept(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, everyone, 3)
	for _, user := range everyone {
		require.NotEqual(t, a.ID, user.ID)
	}
}

package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContactRelay/models"
	"ContactRelay/pkg/client"
)

// listGate holds one ListMessages call after it has read the messages.
type listGate struct {
	entered chan struct{}
	release chan struct{}
}

type fakeOps struct {
	*fakeChat
	mu         sync.Mutex
	token      string
	loggedOut  bool
	rejectList bool
	gate       *listGate
}

func newFakeOps() *fakeOps {
	return &fakeOps{fakeChat: newFakeChat(), token: "tok"}
}

func (f *fakeOps) Login(_ context.Context, username, password string) (string, error) {
	if username != "admin" || password != "pw" {
		return "", client.ErrUnauthorized
	}
	return f.token, nil
}

func (f *fakeOps) Logout(context.Context, string) error {
	f.mu.Lock()
	f.loggedOut = true
	f.mu.Unlock()
	return nil
}

func (f *fakeOps) ListMessages(_ context.Context, token string) ([]models.Message, error) {
	f.mu.Lock()
	reject, gate := f.rejectList, f.gate
	f.gate = nil
	f.mu.Unlock()
	if reject || token != f.token {
		return nil, client.ErrUnauthorized
	}

	f.fakeChat.mu.Lock()
	var all []models.Message
	for _, msgs := range f.msgs {
		all = append(all, msgs...)
	}
	f.fakeChat.mu.Unlock()

	if gate != nil {
		close(gate.entered)
		<-gate.release
	}
	return all, nil
}

func (f *fakeOps) Reply(_ context.Context, token, sessionID, reply string) (models.Message, error) {
	if token != f.token {
		return models.Message{}, client.ErrUnauthorized
	}
	return f.add(sessionID, models.SenderAdmin, reply), nil
}

func TestBuildSessions(t *testing.T) {
	at := func(min int) time.Time { return time.Date(2025, 5, 1, 9, min, 0, 0, time.UTC) }
	// newest first, as the API returns them
	msgs := []models.Message{
		{ID: 6, SessionID: "a", Name: "Admin", SenderType: models.SenderAdmin, IsRead: true, Content: "sure", CreatedAt: at(6)},
		{ID: 5, SessionID: "b", Name: "", SenderType: models.SenderUser, Content: "b2", CreatedAt: at(5)},
		{ID: 4, SessionID: "a", Name: "Ann B.", SenderType: models.SenderUser, Content: "a2", CreatedAt: at(4)},
		{ID: 3, SessionID: "c", Name: "Admin", SenderType: models.SenderAdmin, IsRead: true, Content: "c1", CreatedAt: at(3)},
		{ID: 2, SessionID: "b", Name: "Bob", SenderType: models.SenderUser, Content: "b1", CreatedAt: at(2)},
		{ID: 1, SessionID: "a", Name: "Ann", SenderType: models.SenderUser, Content: "a1", CreatedAt: at(1)},
		{ID: 7, SessionID: "", Content: "orphan", CreatedAt: at(7)},
	}

	sessions := BuildSessions(msgs)
	require.Len(t, sessions, 3)

	a := sessions[0]
	assert.Equal(t, "a", a.ID)
	assert.Equal(t, "Ann B.", a.Name, "latest visitor name wins")
	assert.Equal(t, 2, a.Unread)
	assert.Equal(t, "sure", a.LastMessage.Content)
	require.Len(t, a.Messages, 3)
	assert.Equal(t, "a1", a.Messages[0].Content)

	b := sessions[1]
	assert.Equal(t, "b", b.ID)
	assert.Equal(t, "Bob", b.Name, "blank names are skipped")

	c := sessions[2]
	assert.Equal(t, "Anonymous", c.Name)
	assert.Zero(t, c.Unread)
}

func TestDashboardLoginAndReply(t *testing.T) {
	api := newFakeOps()
	api.add("a", models.SenderUser, "hello")
	state := seededState(t, "")
	d := NewDashboard(api, state, zerolog.Nop(), Options[models.Message]{})
	ctx := context.Background()

	assert.ErrorIs(t, d.Start(ctx), ErrLoggedOut)
	assert.ErrorIs(t, d.Login(ctx, "admin", "nope"), client.ErrUnauthorized)
	require.NoError(t, d.Login(ctx, "admin", "pw"))

	tok, ok, _ := state.Get(KeyAdminToken)
	assert.True(t, ok)
	assert.Equal(t, "tok", tok)

	renders := 0
	d.OnRender = func([]Session) { renders++ }
	require.NoError(t, d.Refresh(ctx))
	assert.Equal(t, 1, renders)

	_, ok = d.Select("a")
	require.True(t, ok)
	_, ok = d.Select("zzz")
	assert.False(t, ok)
	assert.Equal(t, "a", d.Selected())

	require.NoError(t, d.Reply(ctx, "hi!"))
	assert.Equal(t, 2, renders, "reply refreshes at once")
	sessions := d.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "hi!", sessions[0].LastMessage.Content)

	require.NoError(t, d.Logout(ctx))
	assert.True(t, api.loggedOut)
	assert.False(t, d.LoggedIn())
	_, ok, _ = state.Get(KeyAdminToken)
	assert.False(t, ok)
}

func TestDashboardReplyWaitsForStaleFetch(t *testing.T) {
	api := newFakeOps()
	api.add("a", models.SenderUser, "hello")
	d := NewDashboard(api, seededState(t, ""), zerolog.Nop(), Options[models.Message]{})
	ctx := context.Background()

	require.NoError(t, d.Login(ctx, "admin", "pw"))
	require.NoError(t, d.Refresh(ctx))
	_, ok := d.Select("a")
	require.True(t, ok)

	gate := &listGate{entered: make(chan struct{}), release: make(chan struct{})}
	api.mu.Lock()
	api.gate = gate
	api.mu.Unlock()

	stale := make(chan error, 1)
	go func() { stale <- d.Refresh(ctx) }()
	<-gate.entered

	replied := make(chan error, 1)
	go func() { replied <- d.Reply(ctx, "hi!") }()

	require.Eventually(t, func() bool {
		msgs, _ := api.GetChat(ctx, "a")
		return len(msgs) == 2
	}, time.Second, 5*time.Millisecond)

	close(gate.release)
	require.NoError(t, <-stale)
	require.NoError(t, <-replied)

	sessions := d.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "hi!", sessions[0].LastMessage.Content, "the reply is shown without waiting for a tick")
}

func TestDashboardForcedLogout(t *testing.T) {
	api := newFakeOps()
	api.rejectList = true
	state := seededState(t, "")
	require.NoError(t, state.Set(KeyAdminToken, "tok"))

	d := NewDashboard(api, state, zerolog.Nop(), Options[models.Message]{Interval: time.Hour})
	require.True(t, d.LoggedIn())

	var logouts atomic.Int32
	d.OnLogout = func() { logouts.Add(1) }

	require.NoError(t, d.Start(context.Background()))
	require.Eventually(t, func() bool { return logouts.Load() == 1 }, time.Second, 5*time.Millisecond)

	assert.False(t, d.LoggedIn())
	_, ok, _ := state.Get(KeyAdminToken)
	assert.False(t, ok)
	require.Eventually(t, func() bool { return !d.poller.Running() }, time.Second, 5*time.Millisecond)
	d.Stop()
}

func TestDashboardReplyRequiresSelection(t *testing.T) {
	api := newFakeOps()
	state := seededState(t, "")
	require.NoError(t, state.Set(KeyAdminToken, "tok"))
	d := NewDashboard(api, state, zerolog.Nop(), Options[models.Message]{})

	assert.Error(t, d.Reply(context.Background(), "hi"))
}

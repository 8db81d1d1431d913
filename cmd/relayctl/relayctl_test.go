package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ContactRelay/pkg/auth"
	"ContactRelay/pkg/poller"
	"ContactRelay/pkg/ratelimit"
	"ContactRelay/pkg/services"
	"ContactRelay/pkg/store"
	"ContactRelay/routes"
)

func testFlags(t *testing.T) *flags {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	guard := auth.NewGuard(auth.Config{Username: "admin", PasswordHash: string(hash), Secret: "cli-secret"}, nil)
	repo := store.NewMemoryStore()
	log := zerolog.Nop()

	r, err := routes.NewRouter(routes.Deps{
		Guard:     guard,
		Ingestion: services.NewIngestion(repo, ratelimit.New(ratelimit.Config{MaxRequests: 50, Window: time.Hour}), log),
		Query:     services.NewQuery(repo, guard),
		Replier:   services.NewReplier(repo, guard, "Admin", log),
		Log:       log,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &flags{server: srv.URL, stateFile: filepath.Join(t.TempDir(), "state.json"), logLevel: "error"}
}

func TestChatThenDashboardReply(t *testing.T) {
	f := testFlags(t)
	ctx := context.Background()

	var chatOut bytes.Buffer
	require.NoError(t, runChat(ctx, f, "Ann", strings.NewReader("hello there\n/quit\n"), &chatOut))
	assert.Contains(t, chatOut.String(), "[you] hello there")

	sessionID, ok, err := f.state().Get(poller.KeySessionID)
	require.NoError(t, err)
	require.True(t, ok)

	var dashOut bytes.Buffer
	in := strings.NewReader("/open " + sessionID + "\nthanks for writing\n/logout\n")
	require.NoError(t, runDashboard(ctx, f, "admin", "pw", in, &dashOut))
	assert.Contains(t, dashOut.String(), "Ann")
	assert.Contains(t, dashOut.String(), "hello there")

	_, ok, _ = f.state().Get(poller.KeyAdminToken)
	assert.False(t, ok, "logout clears the token")

	msgs, err := f.client().GetChat(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "thanks for writing", msgs[1].Content)
}

func TestDashboardNeedsCredentials(t *testing.T) {
	f := testFlags(t)
	err := runDashboard(context.Background(), f, "", "", strings.NewReader(""), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestCredentials(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runCredentials(strings.NewReader("letters4ever\n"), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	hash := strings.TrimPrefix(lines[0], "ADMIN_PASSWORD_HASH=")
	assert.True(t, auth.CheckPassword(hash, "letters4ever"))
	assert.Len(t, strings.TrimPrefix(lines[1], "JWT_SECRET_KEY="), 64)

	assert.ErrorIs(t, runCredentials(strings.NewReader("weak\n"), &out), auth.ErrPasswordTooShort)
	assert.Error(t, runCredentials(strings.NewReader(""), &out))
}

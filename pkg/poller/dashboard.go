package poller

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"ContactRelay/models"
	"ContactRelay/pkg/client"
)

// ErrLoggedOut is returned by dashboard operations that need a token.
var ErrLoggedOut = errors.New("not logged in")

// OperatorAPI is the part of the relay the dashboard talks to.
type OperatorAPI interface {
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context, token string) error
	ListMessages(ctx context.Context, token string) ([]models.Message, error)
	Reply(ctx context.Context, token, sessionID, reply string) (models.Message, error)
}

// Session is one conversation as the dashboard shows it.
type Session struct {
	ID          string
	Name        string
	Messages    []models.Message // oldest first
	LastMessage models.Message
	Unread      int
}

// BuildSessions groups messages by session, most recently active first.
func BuildSessions(msgs []models.Message) []Session {
	bySession := make(map[string]*Session)
	var order []string
	for _, m := range msgs {
		if m.SessionID == "" {
			continue
		}
		s, ok := bySession[m.SessionID]
		if !ok {
			s = &Session{ID: m.SessionID}
			bySession[m.SessionID] = s
			order = append(order, m.SessionID)
		}
		s.Messages = append(s.Messages, m)
		if m.SenderType == models.SenderUser && !m.IsRead {
			s.Unread++
		}
	}

	out := make([]Session, 0, len(order))
	for _, id := range order {
		s := bySession[id]
		sort.SliceStable(s.Messages, func(i, j int) bool {
			a, b := s.Messages[i], s.Messages[j]
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		})
		s.LastMessage = s.Messages[len(s.Messages)-1]
		s.Name = "Anonymous"
		for i := len(s.Messages) - 1; i >= 0; i-- {
			if m := s.Messages[i]; m.SenderType == models.SenderUser && strings.TrimSpace(m.Name) != "" {
				s.Name = m.Name
				break
			}
		}
		out = append(out, *s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessage.CreatedAt.After(out[j].LastMessage.CreatedAt)
	})
	return out
}

// Dashboard is the operator side: every session, refreshed on a fixed
// interval, with replies into the selected one. A rejected token logs the
// operator out and stops polling.
type Dashboard struct {
	api   OperatorAPI
	state State
	log   zerolog.Logger

	OnRender func(sessions []Session)
	OnLogout func()

	poller *Poller[models.Message]

	mu       sync.Mutex
	token    string
	sessions []Session
	selected string
}

func NewDashboard(api OperatorAPI, state State, log zerolog.Logger, opts Options[models.Message]) *Dashboard {
	d := &Dashboard{api: api, state: state, log: log}

	if tok, ok, err := state.Get(KeyAdminToken); err != nil {
		log.Warn().Err(err).Msg("read dashboard state")
	} else if ok {
		d.token = tok
	}

	opts.OnChange = d.apply
	opts.OnError = d.pollFailed
	d.poller = New(d.fetch, opts)
	return d
}

func (d *Dashboard) LoggedIn() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.token != ""
}

func (d *Dashboard) Login(ctx context.Context, username, password string) error {
	tok, err := d.api.Login(ctx, username, password)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.token = tok
	d.mu.Unlock()
	d.poller.Reset()
	return d.state.Set(KeyAdminToken, tok)
}

// Start begins polling with the stored token.
func (d *Dashboard) Start(ctx context.Context) error {
	if !d.LoggedIn() {
		return ErrLoggedOut
	}
	d.poller.Start(ctx)
	return nil
}

func (d *Dashboard) Stop() {
	d.poller.Stop()
}

// Logout revokes the token on the server and forgets it locally.
func (d *Dashboard) Logout(ctx context.Context) error {
	d.poller.Stop()

	d.mu.Lock()
	tok := d.token
	d.mu.Unlock()

	var err error
	if tok != "" {
		err = d.api.Logout(ctx, tok)
		if errors.Is(err, client.ErrUnauthorized) {
			err = nil
		}
	}
	d.clear()
	return err
}

func (d *Dashboard) Sessions() []Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Session(nil), d.sessions...)
}

// Select makes id the session replies go to.
func (d *Dashboard) Select(id string) (Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.sessions {
		if s.ID == id {
			d.selected = id
			return s, true
		}
	}
	return Session{}, false
}

func (d *Dashboard) Selected() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected
}

// Reply answers in the selected session and refreshes once the reply is
// visible.
func (d *Dashboard) Reply(ctx context.Context, content string) error {
	d.mu.Lock()
	tok, sel := d.token, d.selected
	d.mu.Unlock()

	if tok == "" {
		return ErrLoggedOut
	}
	if sel == "" {
		return errors.New("no session selected")
	}

	if _, err := d.api.Reply(ctx, tok, sel, content); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			d.forceLogout()
		}
		return err
	}

	// a tick already in flight may predate the reply, so wait it out
	_, err := d.poller.Sync(ctx)
	if errors.Is(err, client.ErrUnauthorized) {
		d.forceLogout()
	}
	return err
}

// Refresh polls now instead of waiting for the next tick.
func (d *Dashboard) Refresh(ctx context.Context) error {
	_, err := d.poller.Poll(ctx)
	switch {
	case err == nil, errors.Is(err, ErrInFlight):
		return nil
	case errors.Is(err, client.ErrUnauthorized):
		d.forceLogout()
	}
	return err
}

func (d *Dashboard) fetch(ctx context.Context) ([]models.Message, error) {
	d.mu.Lock()
	tok := d.token
	d.mu.Unlock()
	if tok == "" {
		return nil, ErrLoggedOut
	}
	return d.api.ListMessages(ctx, tok)
}

func (d *Dashboard) apply(msgs []models.Message) {
	sessions := BuildSessions(msgs)

	d.mu.Lock()
	d.sessions = sessions
	d.mu.Unlock()

	if d.OnRender != nil {
		d.OnRender(sessions)
	}
}

func (d *Dashboard) pollFailed(err error) bool {
	if errors.Is(err, client.ErrUnauthorized) || errors.Is(err, ErrLoggedOut) {
		d.log.Warn().Msg("token rejected, logging out")
		d.clear()
		if d.OnLogout != nil {
			d.OnLogout()
		}
		return true
	}
	d.log.Warn().Err(err).Msg("dashboard poll failed")
	return false
}

// forceLogout handles a 401 seen outside the poll loop.
func (d *Dashboard) forceLogout() {
	d.poller.Stop()
	d.clear()
	if d.OnLogout != nil {
		d.OnLogout()
	}
}

func (d *Dashboard) clear() {
	d.mu.Lock()
	d.token = ""
	d.sessions = nil
	d.selected = ""
	d.mu.Unlock()

	if err := d.state.Delete(KeyAdminToken); err != nil {
		d.log.Warn().Err(err).Msg("clear dashboard state")
	}
}

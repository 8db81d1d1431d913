package poller

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ContactRelay/models"
)

// ErrSendFailed is what the visitor sees when a message could not be sent.
var ErrSendFailed = errors.New("failed to send message")

// ChatAPI is the part of the relay a visitor talks to.
type ChatAPI interface {
	SendMessage(ctx context.Context, sessionID, name, content string) (models.Message, error)
	GetChat(ctx context.Context, sessionID string) ([]models.Message, error)
}

type EntryStatus int

const (
	Delivered EntryStatus = iota
	Pending
	Failed
)

func (s EntryStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Failed:
		return "failed"
	default:
		return "delivered"
	}
}

// Entry is one line in the visitor's chat view.
type Entry struct {
	Message models.Message
	Status  EntryStatus

	local int
}

// Widget is the visitor side of a conversation. Sends are shown
// immediately and marked failed when the server rejects them.
type Widget struct {
	api   ChatAPI
	state State
	log   zerolog.Logger

	// OnRender receives the full view after every change.
	OnRender func(entries []Entry)

	poller *Poller[models.Message]

	mu        sync.Mutex
	sessionID string
	name      string
	server    []models.Message
	local     []Entry
	nextLocal int
	unseen    bool
	open      bool
}

func NewWidget(api ChatAPI, state State, log zerolog.Logger, opts Options[models.Message]) *Widget {
	w := &Widget{api: api, state: state, log: log}

	if id, ok, err := state.Get(KeySessionID); err != nil {
		log.Warn().Err(err).Msg("read widget state")
	} else if ok {
		w.sessionID = id
		w.name, _, _ = state.Get(KeyUserName)
	}

	opts.OnChange = w.apply
	opts.OnError = func(err error) bool {
		log.Warn().Err(err).Msg("chat poll failed")
		return false
	}
	w.poller = New(w.fetch, opts)
	return w
}

// SessionID is empty until Start has run on this device.
func (w *Widget) SessionID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sessionID
}

func (w *Widget) Name() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.name
}

// Start creates a session for name unless one is already stored, then
// begins polling.
func (w *Widget) Start(ctx context.Context, name string) error {
	w.mu.Lock()
	if w.sessionID == "" {
		w.sessionID = uuid.NewString()
		w.name = strings.TrimSpace(name)
		if err := w.state.Set(KeySessionID, w.sessionID); err != nil {
			w.mu.Unlock()
			return err
		}
		if err := w.state.Set(KeyUserName, w.name); err != nil {
			w.mu.Unlock()
			return err
		}
		w.log.Info().Str("session", w.sessionID).Msg("started chat session")
	}
	w.mu.Unlock()

	w.poller.Start(ctx)
	return nil
}

func (w *Widget) Stop() {
	w.poller.Stop()
}

// Send shows content at once as pending and resolves it when the server
// answers.
func (w *Widget) Send(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	w.mu.Lock()
	if w.sessionID == "" {
		w.mu.Unlock()
		return errors.New("chat session not started")
	}
	sessionID, name := w.sessionID, w.name
	w.nextLocal++
	id := w.nextLocal
	w.local = append(w.local, Entry{
		Message: models.Message{SessionID: sessionID, Name: name, Content: content, SenderType: models.SenderUser},
		Status:  Pending,
		local:   id,
	})
	w.mu.Unlock()
	w.render()

	msg, err := w.api.SendMessage(ctx, sessionID, name, content)

	w.mu.Lock()
	for i := range w.local {
		if w.local[i].local != id {
			continue
		}
		if err != nil {
			w.local[i].Status = Failed
		} else {
			w.local = append(w.local[:i], w.local[i+1:]...)
			w.server = appendMissing(w.server, msg)
		}
		break
	}
	w.mu.Unlock()
	w.render()

	if err != nil {
		w.log.Warn().Err(err).Msg("send failed")
		return errors.Join(ErrSendFailed, err)
	}
	return nil
}

// Refresh polls now instead of waiting for the next tick.
func (w *Widget) Refresh(ctx context.Context) error {
	_, err := w.poller.Poll(ctx)
	if errors.Is(err, ErrInFlight) {
		return nil
	}
	return err
}

// Open marks the conversation as seen.
func (w *Widget) Open() {
	w.mu.Lock()
	w.open = true
	w.unseen = false
	w.mu.Unlock()
}

func (w *Widget) Close() {
	w.mu.Lock()
	w.open = false
	w.mu.Unlock()
}

// Unseen reports an operator reply that arrived while the widget was closed.
func (w *Widget) Unseen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.unseen
}

func (w *Widget) Entries() []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entries()
}

func (w *Widget) fetch(ctx context.Context) ([]models.Message, error) {
	id := w.SessionID()
	if id == "" {
		return nil, nil
	}
	return w.api.GetChat(ctx, id)
}

func (w *Widget) apply(msgs []models.Message) {
	w.mu.Lock()
	prev := len(w.server)
	if len(msgs) > prev && !w.open && msgs[len(msgs)-1].SenderType.IsOperator() {
		w.unseen = true
	}
	w.server = msgs
	w.mu.Unlock()
	w.render()
}

func (w *Widget) render() {
	if w.OnRender == nil {
		return
	}
	w.OnRender(w.Entries())
}

// entries is the server list followed by unresolved local sends.
func (w *Widget) entries() []Entry {
	out := make([]Entry, 0, len(w.server)+len(w.local))
	for _, m := range w.server {
		out = append(out, Entry{Message: m, Status: Delivered})
	}
	return append(out, w.local...)
}

func appendMissing(msgs []models.Message, m models.Message) []models.Message {
	for _, existing := range msgs {
		if existing.ID == m.ID {
			return msgs
		}
	}
	return append(msgs, m)
}

// Package chat owns the conversation log of one chat screen and the
// lifecycle of each send: user entry, pending bot entry, resolution.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RichardoC/textwriter/internal/models"
)

const (
	DefaultPlaceholder = "Escribiendo..."
	DefaultErrorText   = "Lo siento, ocurrió un error. Intenta de nuevo."

	maxIDAttempts = 3
)

var (
	ErrEmptyPrompt    = errors.New("prompt is empty")
	ErrBusy           = errors.New("a reply is still pending")
	ErrNotFound       = errors.New("message not found")
	ErrNotLikeable    = errors.New("only bot messages can be liked")
	ErrNotRegenerable = errors.New("message has no prompt to regenerate")
)

// Generator is the external text-generation capability.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type Option func(*Manager)

// WithGreeting seeds the conversation with one final bot message.
func WithGreeting(text string) Option {
	return func(m *Manager) { m.greeting = text }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator sets the id source. Ids already used in the log are
// replaced with random UUIDs.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func WithPlaceholder(text string) Option {
	return func(m *Manager) { m.placeholder = text }
}

func WithErrorText(text string) Option {
	return func(m *Manager) { m.errorText = text }
}

// Manager is safe for concurrent use. At most one send is in flight; a
// Submit issued while one is pending is rejected, never queued.
type Manager struct {
	gen         Generator
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
	greeting    string
	placeholder string
	errorText   string

	mu       sync.Mutex
	messages []models.Message
	index    map[string]int
	prompts  map[string]string // bot message id -> raw user text that produced it
	pending  int               // index of the pending bot message, -1 when idle

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

func NewManager(gen Generator, opts ...Option) *Manager {
	m := &Manager{
		gen:         gen,
		logger:      zap.NewNop(),
		now:         time.Now,
		newID:       uuid.NewString,
		placeholder: DefaultPlaceholder,
		errorText:   DefaultErrorText,
		index:       make(map[string]int),
		prompts:     make(map[string]string),
		pending:     -1,
		subs:        make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.greeting != "" {
		m.append(models.Message{
			ID:        m.nextID(),
			Sender:    models.SenderBot,
			Text:      m.greeting,
			Timestamp: m.now(),
			Status:    models.StatusFinal,
		})
	}
	return m
}

// Submit sends rawText to the generator and returns the resolved bot
// message. Generation failures are not returned: they resolve the bot
// message to StatusError with the fixed error text.
func (m *Manager) Submit(ctx context.Context, rawText string) (models.Message, error) {
	prompt := strings.TrimSpace(rawText)
	if prompt == "" {
		return models.Message{}, ErrEmptyPrompt
	}

	botID, err := m.begin(rawText)
	if err != nil {
		return models.Message{}, err
	}

	m.logger.Debug("generating reply", zap.String("message_id", botID), zap.Int("prompt_len", len(prompt)))
	text, genErr := m.generate(ctx, prompt)
	return m.resolve(botID, text, genErr), nil
}

// Regenerate resubmits the user text behind a resolved bot message as a new
// exchange. The existing messages are left untouched.
func (m *Manager) Regenerate(ctx context.Context, id string) (models.Message, error) {
	m.mu.Lock()
	i, ok := m.index[id]
	if !ok {
		m.mu.Unlock()
		return models.Message{}, ErrNotFound
	}
	msg := m.messages[i]
	raw, hasPrompt := m.prompts[id]
	m.mu.Unlock()

	if msg.Sender != models.SenderBot || !msg.Status.Terminal() || !hasPrompt {
		return models.Message{}, ErrNotRegenerable
	}
	return m.Submit(ctx, raw)
}

func (m *Manager) ToggleLike(id string) (models.Message, error) {
	m.mu.Lock()
	i, ok := m.index[id]
	if !ok {
		m.mu.Unlock()
		return models.Message{}, ErrNotFound
	}
	msg := &m.messages[i]
	if msg.Sender != models.SenderBot {
		m.mu.Unlock()
		return models.Message{}, ErrNotLikeable
	}
	msg.Liked = !msg.Liked
	out := *msg
	m.mu.Unlock()

	m.notify()
	return out, nil
}

// CopyText returns the text of a message for a clipboard collaborator.
func (m *Manager) CopyText(id string) (string, error) {
	msg, ok := m.Get(id)
	if !ok {
		return "", ErrNotFound
	}
	return msg.Text, nil
}

func (m *Manager) Get(id string) (models.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[id]
	if !ok {
		return models.Message{}, false
	}
	return m.messages[i], true
}

// Messages returns a copy of the log in display order.
func (m *Manager) Messages() []models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending >= 0
}

// Snapshot returns the log and the busy flag read under one lock.
func (m *Manager) Snapshot() models.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Message, len(m.messages))
	copy(out, m.messages)
	return models.Conversation{Messages: out, Busy: m.pending >= 0}
}

// Subscribe returns a channel that receives a signal after every change to
// the log. Signals are coalesced; readers should re-read Messages.
func (m *Manager) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subMu.Unlock()

	return ch, func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) begin(rawText string) (string, error) {
	m.mu.Lock()
	if m.pending >= 0 {
		m.mu.Unlock()
		return "", ErrBusy
	}

	now := m.now()
	m.append(models.Message{
		ID:        m.nextID(),
		Sender:    models.SenderUser,
		Text:      rawText,
		Timestamp: now,
		Status:    models.StatusFinal,
	})
	bot := models.Message{
		ID:        m.nextID(),
		Sender:    models.SenderBot,
		Text:      m.placeholder,
		Timestamp: now,
		Status:    models.StatusPending,
	}
	m.append(bot)
	m.pending = len(m.messages) - 1
	m.prompts[bot.ID] = rawText
	m.mu.Unlock()

	m.notify()
	return bot.ID, nil
}

func (m *Manager) generate(ctx context.Context, prompt string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panicked: %v", r)
		}
	}()
	return m.gen.Generate(ctx, prompt)
}

func (m *Manager) resolve(id, text string, genErr error) models.Message {
	m.mu.Lock()
	msg := &m.messages[m.index[id]]
	if genErr != nil {
		msg.Status = models.StatusError
		msg.Text = m.errorText
	} else {
		msg.Status = models.StatusFinal
		msg.Text = text
	}
	m.pending = -1
	out := *msg
	m.mu.Unlock()

	if genErr != nil {
		m.logger.Warn("generation failed", zap.String("message_id", id), zap.Error(genErr))
	}
	m.notify()
	return out
}

// nextID draws from the configured generator, falling back to a random
// UUID when it keeps returning ids already in the log. Called with mu held.
func (m *Manager) nextID() string {
	for i := 0; i < maxIDAttempts; i++ {
		if id := m.newID(); !m.taken(id) {
			return id
		}
	}
	for {
		if id := uuid.NewString(); !m.taken(id) {
			return id
		}
	}
}

func (m *Manager) taken(id string) bool {
	if id == "" {
		return true
	}
	_, ok := m.index[id]
	return ok
}

// append must be called with mu held (or before the manager is shared).
func (m *Manager) append(msg models.Message) {
	m.index[msg.ID] = len(m.messages)
	m.messages = append(m.messages, msg)
}

func (m *Manager) notify() {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

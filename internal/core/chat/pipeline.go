// Package chat coordinates conversations, the active message list and the
// optimistic send protocol.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/neilberkman/docchat/internal/core/models"
	"go.uber.org/zap"
)

// TitleLength is how many characters of the first message name a new conversation.
const TitleLength = 50

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrSendInFlight   = errors.New("a message is already being sent")
	ErrRAGUnavailable = errors.New("document mode needs at least one conversation")
)

// API is the slice of the remote client the pipeline uses.
type API interface {
	SendChat(ctx context.Context, mode models.ChatMode, req models.ChatRequest) (*models.ChatReply, error)
	ListConversations(ctx context.Context, skip, limit int) ([]models.Conversation, error)
	ListMessages(ctx context.Context, conversationID models.ID, skip, limit int) ([]models.Message, error)
	DeleteConversation(ctx context.Context, conversationID models.ID) error
}

// Snapshot is a consistent copy of pipeline state for rendering.
type Snapshot struct {
	Conversations []models.Conversation
	Active        *models.Conversation
	Messages      []models.Message
	Mode          models.ChatMode
	Sending       bool
}

// Pipeline owns chat state. All methods are safe for concurrent use; network
// calls are made without holding the lock.
type Pipeline struct {
	api      API
	log      *zap.Logger
	pageSize int
	newID    func() string

	mu            sync.Mutex
	conversations []models.Conversation
	active        *models.Conversation
	messages      []models.Message
	mode          models.ChatMode
	sending       bool
	// generation changes whenever the message list is replaced, so a send
	// that started on an older list knows not to write into the new one.
	generation uint64
	// epoch changes on Reset only
	epoch uint64

	subMu sync.Mutex
	subs  []func(Snapshot)
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithPageSize sets how many conversations/messages are requested per call
func WithPageSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.pageSize = n
		}
	}
}

// WithMode sets the initial chat mode
func WithMode(m models.ChatMode) Option {
	return func(p *Pipeline) {
		if m.Valid() {
			p.mode = m
		}
	}
}

// WithIDGenerator replaces uuid generation (tests)
func WithIDGenerator(fn func() string) Option {
	return func(p *Pipeline) { p.newID = fn }
}

// New creates a pipeline with no conversation loaded.
func New(api API, opts ...Option) *Pipeline {
	p := &Pipeline{
		api:      api,
		log:      zap.NewNop(),
		pageSize: 100,
		newID:    uuid.NewString,
		mode:     models.ModeGeneral,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscribe registers fn to be called after every state change.
func (p *Pipeline) Subscribe(fn func(Snapshot)) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	p.subs = append(p.subs, fn)
}

func (p *Pipeline) notify() {
	snap := p.Snapshot()
	p.subMu.Lock()
	subs := append([]func(Snapshot){}, p.subs...)
	p.subMu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

// Snapshot returns a copy of the current state
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := Snapshot{
		Conversations: append([]models.Conversation(nil), p.conversations...),
		Messages:      append([]models.Message(nil), p.messages...),
		Mode:          p.mode,
		Sending:       p.sending,
	}
	if p.active != nil {
		c := *p.active
		snap.Active = &c
	}
	return snap
}

// Messages returns a copy of the active message list
func (p *Pipeline) Messages() []models.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Message(nil), p.messages...)
}

// Mode returns the current chat mode
func (p *Pipeline) Mode() models.ChatMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// SetMode switches between general and rag. rag needs at least one
// conversation to exist.
func (p *Pipeline) SetMode(m models.ChatMode) error {
	if !m.Valid() {
		return errors.New("unknown chat mode: " + string(m))
	}
	p.mu.Lock()
	if m == models.ModeRAG && len(p.conversations) == 0 {
		p.mu.Unlock()
		return ErrRAGUnavailable
	}
	p.mode = m
	p.mu.Unlock()
	p.notify()
	return nil
}

// LoadConversations fetches the conversation list in server order. An empty
// list forces general mode; a non-empty one leaves the mode alone.
func (p *Pipeline) LoadConversations(ctx context.Context) ([]models.Conversation, error) {
	convs, err := p.api.ListConversations(ctx, 0, p.pageSize)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.conversations = append([]models.Conversation(nil), convs...)
	if len(p.conversations) == 0 {
		p.mode = models.ModeGeneral
	}
	p.mu.Unlock()

	p.notify()
	return convs, nil
}

// LoadConversation makes id the active conversation and replaces the message
// list with the server's copy. Pending messages of any earlier list are dropped.
func (p *Pipeline) LoadConversation(ctx context.Context, id models.ID) ([]models.Message, error) {
	msgs, err := p.api.ListMessages(ctx, id, 0, p.pageSize)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	conv := p.findConversation(id)
	if conv == nil {
		conv = &models.Conversation{ID: id}
	}
	p.active = conv
	p.messages = make([]models.Message, len(msgs))
	for i, m := range msgs {
		m.Provenance = models.Confirmed
		m.ConversationID = id
		p.messages[i] = m
	}
	p.generation++
	p.mu.Unlock()

	p.notify()
	return msgs, nil
}

// StartNewConversation clears the active conversation. No request is made.
func (p *Pipeline) StartNewConversation() {
	p.mu.Lock()
	p.active = nil
	p.messages = nil
	p.generation++
	p.mu.Unlock()
	p.notify()
}

// Reset forgets everything loaded for the signed-in user. A send still in
// flight resolves without touching the cleared state.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	p.conversations = nil
	p.active = nil
	p.messages = nil
	p.mode = models.ModeGeneral
	p.generation++
	p.epoch++
	p.mu.Unlock()
	p.notify()
}

// DeleteConversation removes a conversation on the server and locally.
func (p *Pipeline) DeleteConversation(ctx context.Context, id models.ID) error {
	if err := p.api.DeleteConversation(ctx, id); err != nil {
		return err
	}

	p.mu.Lock()
	kept := p.conversations[:0:0]
	for _, c := range p.conversations {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	p.conversations = kept
	if p.active != nil && p.active.ID == id {
		p.active = nil
		p.messages = nil
		p.generation++
	}
	if len(p.conversations) == 0 {
		p.mode = models.ModeGeneral
	}
	p.mu.Unlock()

	p.notify()
	return nil
}

func (p *Pipeline) findConversation(id models.ID) *models.Conversation {
	for i := range p.conversations {
		if p.conversations[i].ID == id {
			c := p.conversations[i]
			return &c
		}
	}
	return nil
}

// Title derives a conversation title from its first message.
func Title(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= TitleLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:TitleLength]) + "..."
}

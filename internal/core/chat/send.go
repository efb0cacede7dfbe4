package chat

import (
	"context"
	"strings"

	"github.com/neilberkman/docchat/internal/core/models"
	"go.uber.org/zap"
)

// PendingSend is a send whose optimistic message is already visible. Call Do
// exactly once to resolve it.
type PendingSend struct {
	p          *Pipeline
	text       string
	tempID     models.ID
	origin     models.ID
	mode       models.ChatMode
	generation uint64
	epoch      uint64
	done       bool
}

// TempID is the id of the optimistic message
func (s *PendingSend) TempID() models.ID { return s.tempID }

// Begin validates text, marks the pipeline as sending and appends the
// optimistic message. It makes no network call.
func (p *Pipeline) Begin(text string) (*PendingSend, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	p.mu.Lock()
	if p.sending {
		p.mu.Unlock()
		return nil, ErrSendInFlight
	}
	var origin models.ID
	if p.active != nil {
		origin = p.active.ID
	}
	send := &PendingSend{
		p:          p,
		text:       text,
		tempID:     models.ID(p.newID()),
		origin:     origin,
		mode:       p.mode,
		generation: p.generation,
		epoch:      p.epoch,
	}
	p.sending = true
	p.messages = append(p.messages, models.Message{
		ID:             send.tempID,
		Role:           models.RoleUser,
		Content:        text,
		CreatedAt:      models.Timestamp{Time: models.Now()},
		Provenance:     models.Pending,
		ConversationID: origin,
	})
	p.mu.Unlock()

	p.notify()
	return send, nil
}

// SendMessage sends text to the active conversation in the current mode.
func (p *Pipeline) SendMessage(ctx context.Context, text string) (*models.ChatReply, error) {
	send, err := p.Begin(text)
	if err != nil {
		return nil, err
	}
	return send.Do(ctx)
}

// Do issues the request and reconciles the message list with the outcome.
func (s *PendingSend) Do(ctx context.Context) (*models.ChatReply, error) {
	p := s.p
	if s.done {
		return nil, ErrSendInFlight
	}
	s.done = true

	req := models.ChatRequest{Message: s.text}
	if !s.origin.IsZero() {
		id := s.origin
		req.ConversationID = &id
	}

	reply, err := p.api.SendChat(ctx, s.mode, req)
	if err != nil {
		p.mu.Lock()
		p.removeMessage(s.tempID)
		p.sending = false
		p.mu.Unlock()
		p.log.Info("send failed", zap.Error(err))
		p.notify()
		return nil, err
	}

	p.mu.Lock()
	p.removeMessage(s.tempID)
	p.sending = false

	current := p.generation == s.generation
	// after a Reset the reply belongs to whoever was signed in before
	sameUser := p.epoch == s.epoch
	created := reply.ConversationID != s.origin && !reply.ConversationID.IsZero()
	if current {
		now := models.Timestamp{Time: models.Now()}
		p.messages = append(p.messages,
			models.Message{
				ID:             models.ID(p.newID()),
				Role:           models.RoleUser,
				Content:        s.text,
				CreatedAt:      now,
				Provenance:     models.Confirmed,
				ConversationID: reply.ConversationID,
			},
			models.Message{
				ID:             models.ID(p.newID()),
				Role:           models.RoleAssistant,
				Content:        reply.Message,
				CreatedAt:      now,
				Sources:        reply.Sources,
				ContextUsed:    reply.ContextUsed,
				Provenance:     models.Confirmed,
				ConversationID: reply.ConversationID,
			},
		)
		if created {
			p.active = &models.Conversation{
				ID:        reply.ConversationID,
				Title:     Title(s.text),
				CreatedAt: now,
			}
		}
	} else {
		p.log.Debug("discarding reply for a conversation no longer in view",
			zap.String("conversation", reply.ConversationID.String()))
	}
	p.mu.Unlock()
	p.notify()

	if created && sameUser {
		if _, err := p.LoadConversations(ctx); err != nil {
			p.log.Warn("failed to refresh conversations", zap.Error(err))
		}
	}
	return reply, nil
}

// removeMessage drops the message with id. Caller holds p.mu.
func (p *Pipeline) removeMessage(id models.ID) {
	for i, m := range p.messages {
		if m.ID == id {
			p.messages = append(p.messages[:i:i], p.messages[i+1:]...)
			return
		}
	}
}

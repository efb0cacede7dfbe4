package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/neilberkman/docchat/internal/core/api"
	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu            sync.Mutex
	conversations []models.Conversation
	messages      map[models.ID][]models.Message
	sendErr       error
	reply         *models.ChatReply
	sends         []models.ChatRequest
	modes         []models.ChatMode
	listCalls     int
	// block, when set, holds SendChat until closed
	block chan struct{}
	// entered is signalled when SendChat starts
	entered chan struct{}
}

func (f *fakeAPI) SendChat(ctx context.Context, mode models.ChatMode, req models.ChatRequest) (*models.ChatReply, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, req)
	f.modes = append(f.modes, mode)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	if f.reply != nil {
		return f.reply, nil
	}
	id := models.ID("c-new")
	if req.ConversationID != nil {
		id = *req.ConversationID
	} else {
		f.conversations = append([]models.Conversation{{ID: id, Title: "server title"}}, f.conversations...)
	}
	return &models.ChatReply{ConversationID: id, Message: "answer to " + req.Message}, nil
}

func (f *fakeAPI) ListConversations(ctx context.Context, skip, limit int) ([]models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return append([]models.Conversation(nil), f.conversations...), nil
}

func (f *fakeAPI) ListMessages(ctx context.Context, id models.ID, skip, limit int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Message(nil), f.messages[id]...), nil
}

func (f *fakeAPI) DeleteConversation(ctx context.Context, id models.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.conversations[:0]
	for _, c := range f.conversations {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	f.conversations = kept
	return nil
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestSendMessage_NewConversationScenario(t *testing.T) {
	fake := &fakeAPI{}
	p := New(fake, WithIDGenerator(sequentialIDs()))

	var sawPending bool
	p.Subscribe(func(s Snapshot) {
		for _, m := range s.Messages {
			if m.IsPending() && m.Content == "What is X?" {
				sawPending = true
			}
		}
	})

	reply, err := p.SendMessage(context.Background(), "What is X?")
	require.NoError(t, err)
	assert.True(t, sawPending, "optimistic message should be visible before the reply")
	assert.Equal(t, models.ID("c-new"), reply.ConversationID)

	snap := p.Snapshot()
	require.NotNil(t, snap.Active)
	assert.Equal(t, models.ID("c-new"), snap.Active.ID)
	assert.Equal(t, "What is X?", snap.Active.Title)
	assert.Len(t, snap.Conversations, 1, "conversation list refreshed")
	assert.False(t, snap.Sending)

	require.Len(t, snap.Messages, 2)
	assert.Equal(t, models.RoleUser, snap.Messages[0].Role)
	assert.Equal(t, "What is X?", snap.Messages[0].Content)
	assert.Equal(t, models.RoleAssistant, snap.Messages[1].Role)
	assert.Equal(t, "answer to What is X?", snap.Messages[1].Content)
	for _, m := range snap.Messages {
		assert.False(t, m.IsPending())
		assert.NotEqual(t, models.ID("id-1"), m.ID, "confirmed messages get fresh ids")
	}

	require.Len(t, fake.sends, 1)
	assert.Nil(t, fake.sends[0].ConversationID)
}

func TestSendMessage_AppendsExactlyTwo(t *testing.T) {
	fake := &fakeAPI{
		conversations: []models.Conversation{{ID: "c1", Title: "first"}},
		messages: map[models.ID][]models.Message{
			"c1": {
				{ID: "m1", Role: models.RoleUser, Content: "hi"},
				{ID: "m2", Role: models.RoleAssistant, Content: "hello"},
			},
		},
	}
	p := New(fake)
	_, err := p.LoadConversations(context.Background())
	require.NoError(t, err)
	_, err = p.LoadConversation(context.Background(), "c1")
	require.NoError(t, err)

	before := p.Messages()
	_, err = p.SendMessage(context.Background(), "follow up")
	require.NoError(t, err)
	after := p.Messages()

	require.Len(t, after, len(before)+2)
	assert.Equal(t, before, after[:len(before)])
	assert.Equal(t, models.RoleUser, after[len(before)].Role)
	assert.Equal(t, models.RoleAssistant, after[len(before)+1].Role)
	for _, m := range after {
		assert.False(t, m.IsPending())
	}

	require.Len(t, fake.sends, 1)
	require.NotNil(t, fake.sends[0].ConversationID)
	assert.Equal(t, models.ID("c1"), *fake.sends[0].ConversationID)
	assert.Equal(t, "first", p.Snapshot().Active.Title, "existing conversation keeps its title")
}

func TestSendMessage_FailureRollsBack(t *testing.T) {
	fake := &fakeAPI{
		conversations: []models.Conversation{{ID: "c1"}},
		messages:      map[models.ID][]models.Message{"c1": {{ID: "m1", Role: models.RoleUser, Content: "hi"}}},
		sendErr:       &api.Error{Kind: api.KindServer, Status: 500, Message: "model crashed"},
	}
	p := New(fake)
	_, err := p.LoadConversation(context.Background(), "c1")
	require.NoError(t, err)

	before := p.Messages()
	_, err = p.SendMessage(context.Background(), "will fail")
	require.Error(t, err)
	assert.Equal(t, "model crashed", api.UserMessage(err))
	assert.Equal(t, before, p.Messages())
	assert.False(t, p.Snapshot().Sending)

	// pipeline is usable again
	fake.sendErr = nil
	_, err = p.SendMessage(context.Background(), "retry")
	require.NoError(t, err)
}

func TestSendMessage_TrimsText(t *testing.T) {
	fake := &fakeAPI{}
	p := New(fake)

	_, err := p.SendMessage(context.Background(), "  What  is X?\n")
	require.NoError(t, err)

	require.Len(t, fake.sends, 1)
	assert.Equal(t, "What  is X?", fake.sends[0].Message)
	snap := p.Snapshot()
	assert.Equal(t, "What  is X?", snap.Messages[0].Content)
	assert.Equal(t, "What  is X?", snap.Active.Title)
}

func TestSendMessage_RejectsEmpty(t *testing.T) {
	fake := &fakeAPI{}
	p := New(fake)
	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := p.SendMessage(context.Background(), text)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}
	assert.Empty(t, fake.sends)
	assert.Empty(t, p.Messages())
}

func TestSendMessage_SingleFlight(t *testing.T) {
	fake := &fakeAPI{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	p := New(fake)

	errCh := make(chan error, 1)
	go func() {
		_, err := p.SendMessage(context.Background(), "first")
		errCh <- err
	}()
	<-fake.entered

	_, err := p.SendMessage(context.Background(), "second")
	assert.ErrorIs(t, err, ErrSendInFlight)

	pending := 0
	for _, m := range p.Messages() {
		if m.IsPending() {
			pending++
		}
	}
	assert.Equal(t, 1, pending, "exactly one optimistic message while in flight")

	close(fake.block)
	require.NoError(t, <-errCh)
	assert.Len(t, fake.sends, 1)
	assert.Len(t, p.Messages(), 2)
}

func TestSendMessage_SwitchingConversationDropsPending(t *testing.T) {
	fake := &fakeAPI{
		conversations: []models.Conversation{{ID: "c1"}, {ID: "c2"}},
		messages: map[models.ID][]models.Message{
			"c1": {{ID: "a", Role: models.RoleUser, Content: "in c1"}},
			"c2": {{ID: "b", Role: models.RoleUser, Content: "in c2"}},
		},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	p := New(fake)
	_, err := p.LoadConversation(context.Background(), "c1")
	require.NoError(t, err)

	send, err := p.Begin("question for c1")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := send.Do(context.Background())
		done <- err
	}()
	<-fake.entered

	_, err = p.LoadConversation(context.Background(), "c2")
	require.NoError(t, err)
	close(fake.block)
	require.NoError(t, <-done)

	msgs := p.Messages()
	require.Len(t, msgs, 1, "reply for c1 must not leak into c2")
	assert.Equal(t, "in c2", msgs[0].Content)
	assert.Equal(t, models.ID("c2"), p.Snapshot().Active.ID)
}

func TestBegin_ShowsPendingBeforeCall(t *testing.T) {
	fake := &fakeAPI{}
	p := New(fake, WithIDGenerator(sequentialIDs()))

	send, err := p.Begin("hello")
	require.NoError(t, err)
	msgs := p.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsPending())
	assert.Equal(t, send.TempID(), msgs[0].ID)
	assert.Empty(t, fake.sends, "Begin must not call the API")

	_, err = send.Do(context.Background())
	require.NoError(t, err)
	_, err = send.Do(context.Background())
	assert.Error(t, err, "a pending send resolves once")
}

func TestLoadConversations_ModeFallback(t *testing.T) {
	fake := &fakeAPI{conversations: []models.Conversation{{ID: "c1"}}}
	p := New(fake)

	_, err := p.LoadConversations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ModeGeneral, p.Mode(), "non-empty list never forces rag")

	require.NoError(t, p.SetMode(models.ModeRAG))
	_, err = p.LoadConversations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ModeRAG, p.Mode())

	fake.conversations = nil
	_, err = p.LoadConversations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ModeGeneral, p.Mode(), "empty list forces general")
}

func TestSetMode_RAGNeedsConversations(t *testing.T) {
	p := New(&fakeAPI{})
	assert.ErrorIs(t, p.SetMode(models.ModeRAG), ErrRAGUnavailable)
	assert.Error(t, p.SetMode(models.ChatMode("turbo")))
	assert.NoError(t, p.SetMode(models.ModeGeneral))
}

func TestSendMessage_UsesMode(t *testing.T) {
	fake := &fakeAPI{conversations: []models.Conversation{{ID: "c1"}}}
	p := New(fake)
	_, err := p.LoadConversations(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.SetMode(models.ModeRAG))

	_, err = p.SendMessage(context.Background(), "docs?")
	require.NoError(t, err)
	assert.Equal(t, []models.ChatMode{models.ModeRAG}, fake.modes)
}

func TestStartNewConversation(t *testing.T) {
	fake := &fakeAPI{
		conversations: []models.Conversation{{ID: "c1"}},
		messages:      map[models.ID][]models.Message{"c1": {{ID: "a", Content: "x"}}},
	}
	p := New(fake)
	_, err := p.LoadConversation(context.Background(), "c1")
	require.NoError(t, err)

	p.StartNewConversation()
	snap := p.Snapshot()
	assert.Nil(t, snap.Active)
	assert.Empty(t, snap.Messages)
	assert.Zero(t, fake.listCalls, "no server call")
}

func TestDeleteConversation(t *testing.T) {
	fake := &fakeAPI{
		conversations: []models.Conversation{{ID: "c1"}, {ID: "c2"}},
		messages:      map[models.ID][]models.Message{"c1": {{ID: "a"}}},
	}
	p := New(fake)
	_, err := p.LoadConversations(context.Background())
	require.NoError(t, err)
	_, err = p.LoadConversation(context.Background(), "c1")
	require.NoError(t, err)

	require.NoError(t, p.DeleteConversation(context.Background(), "c1"))
	snap := p.Snapshot()
	assert.Nil(t, snap.Active)
	assert.Empty(t, snap.Messages)
	require.Len(t, snap.Conversations, 1)
	assert.Equal(t, models.ID("c2"), snap.Conversations[0].ID)
}

func TestReset(t *testing.T) {
	fake := &fakeAPI{
		conversations: []models.Conversation{{ID: "c1", Title: "private"}},
		messages:      map[models.ID][]models.Message{"c1": {{ID: "m1", Role: models.RoleUser, Content: "hi"}}},
	}
	p := New(fake)
	_, err := p.LoadConversations(context.Background())
	require.NoError(t, err)
	_, err = p.LoadConversation(context.Background(), "c1")
	require.NoError(t, err)
	require.NoError(t, p.SetMode(models.ModeRAG))

	p.Reset()

	snap := p.Snapshot()
	assert.Empty(t, snap.Conversations)
	assert.Empty(t, snap.Messages)
	assert.Nil(t, snap.Active)
	assert.Equal(t, models.ModeGeneral, snap.Mode)
	assert.ErrorIs(t, p.SetMode(models.ModeRAG), ErrRAGUnavailable)
}

func TestReset_DropsLateReply(t *testing.T) {
	fake := &fakeAPI{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	p := New(fake)

	send, err := p.Begin("hello")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() {
		_, err := send.Do(context.Background())
		done <- err
	}()
	<-fake.entered

	p.Reset()
	close(fake.block)
	require.NoError(t, <-done)

	snap := p.Snapshot()
	assert.Empty(t, snap.Messages)
	assert.Nil(t, snap.Active)
	assert.Empty(t, snap.Conversations, "a stale reply must not reload the list")
	assert.Zero(t, fake.listCalls)
	assert.False(t, snap.Sending)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "What is X?", Title("What is X?"))
	assert.Equal(t, "a  b", Title("  a  b  "))

	long := strings.Repeat("é", 60)
	got := Title(long)
	assert.Equal(t, strings.Repeat("é", TitleLength)+"...", got)

	exact := strings.Repeat("x", TitleLength)
	assert.Equal(t, exact, Title(exact))
}

func TestSendErrorIsReturnedUnchanged(t *testing.T) {
	sentinel := errors.New("boom")
	p := New(&fakeAPI{sendErr: sentinel})
	_, err := p.SendMessage(context.Background(), "x")
	assert.ErrorIs(t, err, sentinel)
}

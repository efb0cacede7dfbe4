package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	convs    []models.Conversation
	msgs     map[models.ID][]models.Message
	docs     []models.Document
	sent     []models.ChatRequest
	modes    []models.ChatMode
	sendErr  error
	statsErr error
}

func (f *fakeClient) SendChat(ctx context.Context, mode models.ChatMode, req models.ChatRequest) (*models.ChatReply, error) {
	f.sent = append(f.sent, req)
	f.modes = append(f.modes, mode)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	id := models.ID("100")
	if req.ConversationID != nil {
		id = *req.ConversationID
	}
	used := true
	return &models.ChatReply{
		ConversationID: id,
		Message:        "answer to " + req.Message,
		Sources:        []models.Source{{Filename: "guide.pdf"}},
		ContextUsed:    &used,
	}, nil
}

func (f *fakeClient) ListConversations(ctx context.Context, skip, limit int) ([]models.Conversation, error) {
	return f.convs, nil
}

func (f *fakeClient) ListMessages(ctx context.Context, id models.ID, skip, limit int) ([]models.Message, error) {
	msgs, ok := f.msgs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return msgs, nil
}

func (f *fakeClient) DeleteConversation(ctx context.Context, id models.ID) error { return nil }

func (f *fakeClient) ListDocuments(ctx context.Context, skip, limit int) ([]models.Document, error) {
	return f.docs, nil
}

func (f *fakeClient) DocumentStats(ctx context.Context) (*models.DocumentStats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return &models.DocumentStats{TotalDocuments: 4, ProcessedDocuments: 3, TotalChunks: 40, TotalSize: 2048}, nil
}

func (f *fakeClient) ChatStats(ctx context.Context) (*models.ChatStats, error) {
	return &models.ChatStats{TotalConversations: 2, TotalMessages: 8}, nil
}

func call(t *testing.T, h handler, args map[string]interface{}) (*mcp.CallToolResult, map[string]interface{}) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)

	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	if res.IsError {
		return res, map[string]interface{}{"error": text.Text}
	}
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return res, out
}

func TestAsk_NewConversationDefaultsToGeneralWithoutHistory(t *testing.T) {
	client := &fakeClient{}
	_, out := call(t, makeAskHandler(client, nil), map[string]interface{}{"question": "What is X?"})

	assert.Equal(t, "answer to What is X?", out["answer"])
	assert.Equal(t, "100", out["conversation_id"])
	assert.Equal(t, "general", out["mode"])
	require.Len(t, client.sent, 1)
	assert.Nil(t, client.sent[0].ConversationID)
}

func TestAsk_ContinuesConversationInRAGMode(t *testing.T) {
	client := &fakeClient{
		convs: []models.Conversation{{ID: "7", Title: "Budget"}},
		msgs:  map[models.ID][]models.Message{"7": {{Role: models.RoleUser, Content: "hi"}}},
	}
	_, out := call(t, makeAskHandler(client, nil), map[string]interface{}{
		"question":        "and now?",
		"conversation_id": "7",
	})

	assert.Equal(t, "7", out["conversation_id"])
	assert.Equal(t, "rag", out["mode"])
	require.Len(t, client.sent, 1)
	require.NotNil(t, client.sent[0].ConversationID)
	assert.Equal(t, models.ID("7"), *client.sent[0].ConversationID)
	assert.Equal(t, models.ModeRAG, client.modes[0])
}

func TestAsk_Errors(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeClient
		args   map[string]interface{}
	}{
		{"empty question", &fakeClient{}, map[string]interface{}{"question": "  "}},
		{"rag without conversations", &fakeClient{}, map[string]interface{}{"question": "q", "mode": "rag"}},
		{"unknown conversation", &fakeClient{convs: []models.Conversation{{ID: "1"}}}, map[string]interface{}{"question": "q", "conversation_id": "9"}},
		{"send failure", &fakeClient{sendErr: errors.New("boom")}, map[string]interface{}{"question": "q"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _ := call(t, makeAskHandler(tt.client, nil), tt.args)
			assert.True(t, res.IsError)
		})
	}
}

func TestListConversations_LimitAndFilter(t *testing.T) {
	client := &fakeClient{convs: []models.Conversation{
		{ID: "1", Title: "Budget 2024"},
		{ID: "2", Title: "Holiday plans"},
		{ID: "3", Title: "Budget review"},
	}}

	_, out := call(t, makeListConversationsHandler(client), map[string]interface{}{"filter": "budget", "limit": 1})
	convs := out["conversations"].([]interface{})
	require.Len(t, convs, 1)
	assert.Equal(t, "1", convs[0].(map[string]interface{})["conversation_id"])
}

func TestGetConversation(t *testing.T) {
	client := &fakeClient{msgs: map[models.ID][]models.Message{
		"5": {
			{Role: models.RoleUser, Content: "q"},
			{Role: models.RoleAssistant, Content: "a", Sources: []models.Source{{Filename: "f.txt"}}},
		},
	}}

	_, out := call(t, makeGetConversationHandler(client), map[string]interface{}{"conversation_id": "5"})
	msgs := out["messages"].([]interface{})
	require.Len(t, msgs, 2)
	assert.Equal(t, "assistant", msgs[1].(map[string]interface{})["role"])

	res, _ := call(t, makeGetConversationHandler(client), map[string]interface{}{})
	assert.True(t, res.IsError)
}

func TestListDocuments(t *testing.T) {
	client := &fakeClient{docs: []models.Document{
		{ID: "1", Filename: "report.pdf", Processed: true},
		{ID: "2", Filename: "notes.txt"},
	}}

	_, out := call(t, makeListDocumentsHandler(client), map[string]interface{}{"filter": "report"})
	docs := out["documents"].([]interface{})
	require.Len(t, docs, 1)
	assert.Equal(t, "report.pdf", docs[0].(map[string]interface{})["filename"])
}

func TestDocumentStats(t *testing.T) {
	_, out := call(t, makeDocumentStatsHandler(&fakeClient{}), nil)
	assert.Equal(t, "75.0%", out["indexed_percent"])
	assert.EqualValues(t, 2, out["total_conversations"])

	res, _ := call(t, makeDocumentStatsHandler(&fakeClient{statsErr: errors.New("down")}), nil)
	assert.True(t, res.IsError)
}

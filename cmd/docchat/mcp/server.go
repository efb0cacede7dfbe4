package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/neilberkman/docchat/internal/core/chat"
	"github.com/neilberkman/docchat/internal/core/dashboard"
	"github.com/neilberkman/docchat/internal/core/filter"
	"github.com/neilberkman/docchat/internal/core/models"
	"go.uber.org/zap"
)

// Client is the part of the API the tools call
type Client interface {
	chat.API
	ListDocuments(ctx context.Context, skip, limit int) ([]models.Document, error)
	DocumentStats(ctx context.Context) (*models.DocumentStats, error)
	ChatStats(ctx context.Context) (*models.ChatStats, error)
}

// AskArgs defines arguments for the ask tool
type AskArgs struct {
	Question       string `json:"question" jsonschema:"description=Question to send,required"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"description=Continue this conversation instead of starting a new one"`
	Mode           string `json:"mode,omitempty" jsonschema:"description=general or rag (default: rag when any conversation exists)"`
}

// ListConversationsArgs defines arguments for the list_conversations tool
type ListConversationsArgs struct {
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Max conversations to return (default: 20)"`
	Filter string `json:"filter,omitempty" jsonschema:"description=Title words plus after:/before:/date: terms"`
}

// GetConversationArgs defines arguments for the get_conversation tool
type GetConversationArgs struct {
	ConversationID string `json:"conversation_id" jsonschema:"description=Conversation to retrieve,required"`
}

// ListDocumentsArgs defines arguments for the list_documents tool
type ListDocumentsArgs struct {
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Max documents to return (default: 50)"`
	Filter string `json:"filter,omitempty" jsonschema:"description=Filename words plus after:/before:/date: terms"`
}

// Answer is the result of the ask tool
type Answer struct {
	ConversationID string          `json:"conversation_id"`
	Answer         string          `json:"answer"`
	Mode           string          `json:"mode"`
	ContextUsed    *bool           `json:"context_used,omitempty"`
	Sources        []models.Source `json:"sources,omitempty"`
}

// ConversationSummary represents a conversation in the list view
type ConversationSummary struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// MessageDetail represents a single message in a conversation
type MessageDetail struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Timestamp string          `json:"timestamp,omitempty"`
	Sources   []models.Source `json:"sources,omitempty"`
}

// DocumentSummary represents a document in the list view
type DocumentSummary struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Size       int64  `json:"size"`
	Chunks     int    `json:"chunks"`
	Processed  bool   `json:"processed"`
	CreatedAt  string `json:"created_at,omitempty"`
}

type handler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// NewServer registers the tools against client.
func NewServer(client Client, version string, log *zap.Logger) *server.MCPServer {
	if log == nil {
		log = zap.NewNop()
	}

	s := server.NewMCPServer(
		"DocChat",
		version,
	)

	askTool := mcp.NewTool("ask",
		mcp.WithDescription("Ask the document chat server a question. In rag mode the answer is grounded in the user's uploaded documents and lists its sources."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question to send")),
		mcp.WithString("conversation_id",
			mcp.Description("Continue this conversation instead of starting a new one")),
		mcp.WithString("mode",
			mcp.Description("'general' or 'rag' (default: rag when any conversation exists, otherwise general)")),
	)
	s.AddTool(askTool, makeAskHandler(client, log))

	listTool := mcp.NewTool("list_conversations",
		mcp.WithDescription("List the user's chat conversations"),
		mcp.WithNumber("limit",
			mcp.Description("Max conversations to return (default: 20)")),
		mcp.WithString("filter",
			mcp.Description("Title words plus date terms, e.g. 'budget after:last week'")),
	)
	s.AddTool(listTool, makeListConversationsHandler(client))

	getTool := mcp.NewTool("get_conversation",
		mcp.WithDescription("Retrieve every message of a conversation, including sources for document answers"),
		mcp.WithString("conversation_id",
			mcp.Required(),
			mcp.Description("Conversation to retrieve")),
	)
	s.AddTool(getTool, makeGetConversationHandler(client))

	docsTool := mcp.NewTool("list_documents",
		mcp.WithDescription("List uploaded documents and whether they are indexed"),
		mcp.WithNumber("limit",
			mcp.Description("Max documents to return (default: 50)")),
		mcp.WithString("filter",
			mcp.Description("Filename words plus date terms, e.g. 'report before:2024-06-01'")),
	)
	s.AddTool(docsTool, makeListDocumentsHandler(client))

	statsTool := mcp.NewTool("document_stats",
		mcp.WithDescription("Summarize document indexing and chat activity"),
	)
	s.AddTool(statsTool, makeDocumentStatsHandler(client))

	return s
}

// StartServer serves the tools over stdio until stdin closes
func StartServer(client Client, version string, log *zap.Logger) error {
	return server.ServeStdio(NewServer(client, version, log))
}

func decodeArgs(request mcp.CallToolRequest, v interface{}) error {
	argsBytes, _ := json.Marshal(request.Params.Arguments)
	return json.Unmarshal(argsBytes, v)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	resultJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func formatTime(t models.Timestamp) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func makeAskHandler(client Client, log *zap.Logger) handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args AskArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		// Each call gets its own pipeline so concurrent asks never share a send slot.
		p := chat.New(client, chat.WithLogger(log.Named("mcp")))
		convs, err := p.LoadConversations(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list conversations: %v", err)), nil
		}

		mode := models.ChatMode(strings.ToLower(args.Mode))
		if mode == "" && len(convs) > 0 {
			mode = models.ModeRAG
		}
		if mode != "" {
			if err := p.SetMode(mode); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}

		if args.ConversationID != "" {
			if _, err := p.LoadConversation(ctx, models.ID(args.ConversationID)); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("conversation not found: %v", err)), nil
			}
		}

		reply, err := p.SendMessage(ctx, args.Question)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
		}

		return jsonResult(Answer{
			ConversationID: reply.ConversationID.String(),
			Answer:         reply.Message,
			Mode:           string(p.Mode()),
			ContextUsed:    reply.ContextUsed,
			Sources:        reply.Sources,
		})
	}
}

func makeListConversationsHandler(client Client) handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ListConversationsArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		// Set defaults (interface concern - pagination)
		limit := args.Limit
		if limit <= 0 {
			limit = 20
		}

		convs, err := client.ListConversations(ctx, 0, 100)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
		}
		convs = filter.Parse(args.Filter, time.Now()).Conversations(convs)
		if len(convs) > limit {
			convs = convs[:limit]
		}

		out := []ConversationSummary{}
		for _, c := range convs {
			out = append(out, ConversationSummary{
				ConversationID: c.ID.String(),
				Title:          c.Title,
				CreatedAt:      formatTime(c.CreatedAt),
			})
		}
		return jsonResult(map[string]interface{}{
			"conversations": out,
		})
	}
}

func makeGetConversationHandler(client Client) handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args GetConversationArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if args.ConversationID == "" {
			return mcp.NewToolResultError("conversation_id is required"), nil
		}

		msgs, err := client.ListMessages(ctx, models.ID(args.ConversationID), 0, 100)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("conversation not found: %v", err)), nil
		}

		out := []MessageDetail{}
		for _, m := range msgs {
			out = append(out, MessageDetail{
				Role:      string(m.Role),
				Content:   m.Content,
				Timestamp: formatTime(m.CreatedAt),
				Sources:   m.Sources,
			})
		}
		return jsonResult(map[string]interface{}{
			"conversation_id": args.ConversationID,
			"messages":        out,
		})
	}
}

func makeListDocumentsHandler(client Client) handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ListDocumentsArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		limit := args.Limit
		if limit <= 0 {
			limit = 50
		}

		docs, err := client.ListDocuments(ctx, 0, 100)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
		}
		docs = filter.Parse(args.Filter, time.Now()).Documents(docs)
		if len(docs) > limit {
			docs = docs[:limit]
		}

		out := []DocumentSummary{}
		for _, d := range docs {
			out = append(out, DocumentSummary{
				DocumentID: d.ID.String(),
				Filename:   d.Filename,
				Size:       d.FileSize,
				Chunks:     d.ChunkCount,
				Processed:  d.Processed,
				CreatedAt:  formatTime(d.CreatedAt),
			})
		}
		return jsonResult(map[string]interface{}{
			"documents": out,
		})
	}
}

func makeDocumentStatsHandler(client Client) handler {
	stats := dashboard.New(client, 0)
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s, err := stats.Summary(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats failed: %v", err)), nil
		}
		return jsonResult(map[string]interface{}{
			"total_documents":     s.Documents.TotalDocuments,
			"processed_documents": s.Documents.ProcessedDocuments,
			"indexed_percent":     dashboard.FormatPercent(s.IndexedPercent()),
			"total_chunks":        s.Documents.TotalChunks,
			"total_size_bytes":    s.Documents.TotalSize,
			"total_conversations": s.Chat.TotalConversations,
			"total_messages":      s.Chat.TotalMessages,
		})
	}
}

package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/neilberkman/docchat/internal/core/models"
)

// SendChat posts a message. A nil conversation id starts a new conversation.
func (c *Client) SendChat(ctx context.Context, mode models.ChatMode, req models.ChatRequest) (*models.ChatReply, error) {
	q := url.Values{}
	q.Set("mode", string(mode))

	var reply models.ChatReply
	if err := c.Do(ctx, http.MethodPost, "/chat/", req, &reply, WithQuery(q)); err != nil {
		return nil, err
	}
	return &reply, nil
}

// ListConversations returns conversations in server order (newest first).
func (c *Client) ListConversations(ctx context.Context, skip, limit int) ([]models.Conversation, error) {
	var out []models.Conversation
	if err := c.Do(ctx, http.MethodGet, "/chat/conversations", nil, &out, WithQuery(pageQuery(skip, limit))); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMessages returns the messages of one conversation.
func (c *Client) ListMessages(ctx context.Context, conversationID models.ID, skip, limit int) ([]models.Message, error) {
	var out []models.Message
	path := "/chat/conversations/" + url.PathEscape(conversationID.String()) + "/messages"
	if err := c.Do(ctx, http.MethodGet, path, nil, &out, WithQuery(pageQuery(skip, limit))); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteConversation removes a conversation and its messages.
func (c *Client) DeleteConversation(ctx context.Context, conversationID models.ID) error {
	return c.Do(ctx, http.MethodDelete, "/chat/conversations/"+url.PathEscape(conversationID.String()), nil, nil)
}

// ChatStats returns conversation and message counts.
func (c *Client) ChatStats(ctx context.Context) (*models.ChatStats, error) {
	var out models.ChatStats
	if err := c.Do(ctx, http.MethodGet, "/chat/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

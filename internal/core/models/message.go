package models

import "time"

// Role of a chat message author
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Provenance says whether a message came back from the server or is a local
// placeholder waiting for a send to resolve.
type Provenance int

const (
	Confirmed Provenance = iota
	Pending
)

func (p Provenance) String() string {
	if p == Pending {
		return "pending"
	}
	return "confirmed"
}

// ChatMode selects plain completion or retrieval-augmented answers.
type ChatMode string

const (
	ModeGeneral ChatMode = "general"
	ModeRAG     ChatMode = "rag"
)

// Valid reports whether m is a known mode
func (m ChatMode) Valid() bool {
	return m == ModeGeneral || m == ModeRAG
}

// Source is a retrieved document chunk the answer drew on.
type Source struct {
	Filename        string   `json:"filename"`
	SimilarityScore *float64 `json:"similarity_score,omitempty"`
}

// Message is a single entry in a conversation
type Message struct {
	ID          ID        `json:"id"`
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	CreatedAt   Timestamp `json:"created_at"`
	Sources     []Source  `json:"sources,omitempty"`
	ContextUsed *bool     `json:"context_used,omitempty"`

	// Client-side bookkeeping, never sent over the wire.
	Provenance     Provenance `json:"-"`
	ConversationID ID         `json:"-"`
}

// IsPending reports whether the message is an unconfirmed placeholder
func (m Message) IsPending() bool {
	return m.Provenance == Pending
}

// Conversation is a chat thread owned by the server.
type Conversation struct {
	ID        ID        `json:"id"`
	Title     string    `json:"title"`
	CreatedAt Timestamp `json:"created_at"`
}

// ChatRequest is the body of POST /chat/.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID *ID    `json:"conversation_id,omitempty"`
}

// ChatReply is the response of POST /chat/.
type ChatReply struct {
	ConversationID ID       `json:"conversation_id"`
	Message        string   `json:"message"`
	Sources        []Source `json:"sources,omitempty"`
	ContextUsed    *bool    `json:"context_used,omitempty"`
}

// ChatStats is returned by GET /chat/stats.
type ChatStats struct {
	TotalConversations int `json:"total_conversations"`
	TotalMessages      int `json:"total_messages"`
}

// Now is the clock used for client-generated timestamps.
var Now = time.Now

package domain

import "time"

// Message is one turn in a conversation.
type Message struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Entity keys recognized in message metadata. AddMessage promotes these
// into ConversationContext fields with last-write-wins semantics.
const (
	EntityPartNumber      = "part_number"
	EntityWarehouse       = "warehouse"
	EntityTransactionType = "transaction_type"
	EntityTable           = "table"
	EntityIntent          = "intent"
)

// ConversationContext is the per-session conversational state consulted by
// the reference resolver. One per session; updated by every AddMessage call.
type ConversationContext struct {
	SessionID         string            `json:"session_id"`
	UserID            string            `json:"user_id,omitempty"`
	Messages          []Message         `json:"messages"`
	ExtractedEntities map[string]string `json:"extracted_entities"`
	LastIntent        string            `json:"last_intent,omitempty"`
	LastTable         string            `json:"last_table,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Resolution is the outcome of anaphora resolution for one query.
type Resolution struct {
	Resolved bool              `json:"resolved"`
	Entities map[string]string `json:"entities"`
}

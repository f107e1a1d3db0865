package models

// Conversation roles accepted in chat history.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ChatTurn is one prior exchange in a conversation.
type ChatTurn struct {
	Role  string   `json:"role"` // "user" or "model"
	Parts []string `json:"parts"`
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message     string     `json:"message"`
	ChatHistory []ChatTurn `json:"chat_history"`
}

// ChatResponse is the reply returned to the client.
type ChatResponse struct {
	Reply string `json:"reply"`
}

package types

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

type ChatTurn struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// ChatRequest is the body sent to the assistant's rag endpoint.
type ChatRequest struct {
	Query       string     `json:"query"`
	ChatHistory []ChatTurn `json:"chat_history,omitempty"`
	Sources     []string   `json:"sources,omitempty"`
}

// AskRequest is what the console accepts from the browser.
type AskRequest struct {
	SessionID  string `json:"sessionId,omitempty"`
	Query      string `json:"query"`
	UseContext bool   `json:"useContext"`
}

type ChatAnswer struct {
	SessionID string   `json:"sessionId"`
	MessageID string   `json:"messageId"`
	Content   string   `json:"content"`
	HTML      string   `json:"html"`
	Sources   []string `json:"sources,omitempty"`
}

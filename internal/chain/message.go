package chain

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry of a transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// template is a message whose content may hold ${name} placeholders.
type template struct {
	role Role
	text string
}

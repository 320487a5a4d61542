package prompt

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// ParseRole converts s into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", invalidPrompt("unknown role %q", s)
	}
	return r, nil
}

// Message is a single conversation turn.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// NewMessage builds a Message after validating the role.
func NewMessage(role, content string) (Message, error) {
	r, err := ParseRole(role)
	if err != nil {
		return Message{}, err
	}
	return Message{Role: r, Content: content}, nil
}

func (m Message) String() string { return m.Content }

// Prompt is the input to Template.Render: either raw text or an ordered
// list of messages. Use TextPrompt or ChatPrompt to build one.
type Prompt struct {
	Text     string
	Messages []Message
	// UseTemplate applies only to text prompts. When false the text is
	// passed to the model unchanged.
	UseTemplate bool
	// Parameters are opaque generation parameters carried alongside.
	Parameters map[string]any

	chat bool
}

// TextPrompt wraps a raw string.
func TextPrompt(text string, useTemplate bool) Prompt {
	return Prompt{Text: text, UseTemplate: useTemplate}
}

// ChatPrompt wraps an ordered message list.
func ChatPrompt(msgs []Message) Prompt {
	return Prompt{Messages: msgs, UseTemplate: true, chat: true}
}

// IsChat reports whether p carries a message list rather than raw text.
func (p Prompt) IsChat() bool { return p.chat || p.Messages != nil }

package prompt

import "strings"

// Render turns p into the final model input according to t. It never
// modifies p.Messages.
func (t *Template) Render(p Prompt) (string, error) {
	if !p.IsChat() {
		if !p.UseTemplate {
			return p.Text, nil
		}
		msgs := make([]Message, 0, 2)
		if t.defaultSystemMessage != "" {
			msgs = append(msgs, Message{Role: RoleSystem, Content: t.defaultSystemMessage})
		}
		msgs = append(msgs, Message{Role: RoleUser, Content: p.Text})
		return t.RenderMessages(msgs)
	}
	return t.RenderMessages(p.Messages)
}

// RenderMessages renders an ordered conversation. At most one system
// message is accepted.
func (t *Template) RenderMessages(in []Message) (string, error) {
	systemIdx := -1
	for i, m := range in {
		if !m.Role.Valid() {
			return "", invalidPrompt("message %d has unknown role %q", i, m.Role)
		}
		if m.Role != RoleSystem {
			continue
		}
		if systemIdx != -1 {
			return "", invalidPrompt("only one system message can be specified")
		}
		systemIdx = i
	}

	msgs := make([]Message, 0, len(in)+1)
	var system *Message
	switch {
	case systemIdx != -1:
		s := in[systemIdx]
		system = &s
		msgs = append(msgs, in[:systemIdx]...)
		msgs = append(msgs, in[systemIdx+1:]...)
	case t.defaultSystemMessage != "" || t.forceSystemTags:
		system = &Message{Role: RoleSystem, Content: t.defaultSystemMessage}
		msgs = append(msgs, in...)
	default:
		msgs = append(msgs, in...)
	}
	if system != nil && (system.Content != "" || t.forceSystemTags) && !t.systemInUser {
		msgs = append([]Message{*system}, msgs...)
	}

	var b strings.Builder
	for _, m := range msgs {
		content := t.clean(m.Content)
		switch m.Role {
		case RoleSystem:
			b.WriteString(fill(t.system, content))
		case RoleUser:
			if !t.systemInUser {
				b.WriteString(fill(t.user, content))
				continue
			}
			sys := ""
			if system != nil {
				sys = fill(t.system, t.clean(system.Content))
				system = nil
			}
			b.WriteString(fillWithSystem(t.user, content, sys))
		case RoleAssistant:
			b.WriteString(fill(t.assistant, content))
		}
	}
	b.WriteString(t.trailingAssistant)
	return b.String(), nil
}

func (t *Template) clean(s string) string {
	if t.stripWhitespace {
		return strings.TrimSpace(s)
	}
	return s
}

// fill substitutes {instruction} in tmpl. The replacement text is not
// scanned again, so braces inside content survive untouched.
func fill(tmpl, instruction string) string {
	return strings.NewReplacer(instructionPlaceholder, instruction).Replace(tmpl)
}

// fillWithSystem substitutes {instruction} and {system} in a single pass.
func fillWithSystem(tmpl, instruction, system string) string {
	return strings.NewReplacer(instructionPlaceholder, instruction, systemPlaceholder, system).Replace(tmpl)
}

// Render is a convenience wrapper around t.Render.
func Render(t *Template, p Prompt) (string, error) { return t.Render(p) }

package prompt

import (
	"errors"
	"strings"

	"github.com/hashicorp/go-multierror"
)

const (
	instructionPlaceholder = "{instruction}"
	systemPlaceholder      = "{system}"
)

// TemplateConfig is the per-model prompt format as it appears in model
// description files.
type TemplateConfig struct {
	System            string `json:"system" yaml:"system" toml:"system"`
	Assistant         string `json:"assistant" yaml:"assistant" toml:"assistant"`
	User              string `json:"user" yaml:"user" toml:"user"`
	TrailingAssistant string `json:"trailing_assistant" yaml:"trailing_assistant" toml:"trailing_assistant"`

	DefaultSystemMessage              string `json:"default_system_message" yaml:"default_system_message" toml:"default_system_message"`
	SystemInUser                      bool   `json:"system_in_user" yaml:"system_in_user" toml:"system_in_user"`
	AddSystemTagsEvenIfMessageIsEmpty bool   `json:"add_system_tags_even_if_message_is_empty" yaml:"add_system_tags_even_if_message_is_empty" toml:"add_system_tags_even_if_message_is_empty"`

	// StripWhitespace defaults to true when omitted.
	StripWhitespace *bool `json:"strip_whitespace,omitempty" yaml:"strip_whitespace,omitempty" toml:"strip_whitespace,omitempty"`
}

// Template is a validated, immutable prompt format. A *Template may be
// shared by any number of goroutines.
type Template struct {
	system            string
	assistant         string
	user              string
	trailingAssistant string

	defaultSystemMessage string
	systemInUser         bool
	forceSystemTags      bool
	stripWhitespace      bool
}

// NewTemplate validates cfg and returns the resulting Template. All
// violated constraints are reported together.
func NewTemplate(cfg TemplateConfig) (*Template, error) {
	var result *multierror.Error
	check := func(name, value string) {
		if value == "" || !strings.Contains(value, instructionPlaceholder) {
			result = multierror.Append(result, errors.New(name+" must be a string containing '"+instructionPlaceholder+"'"))
		}
	}
	check("system", cfg.System)
	check("assistant", cfg.Assistant)
	check("user", cfg.User)
	if cfg.SystemInUser && !strings.Contains(cfg.User, systemPlaceholder) {
		result = multierror.Append(result, errors.New("if system_in_user=true, user must contain '"+systemPlaceholder+"'"))
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, &TemplateError{Err: err}
	}

	strip := true
	if cfg.StripWhitespace != nil {
		strip = *cfg.StripWhitespace
	}
	return &Template{
		system:               cfg.System,
		assistant:            cfg.Assistant,
		user:                 cfg.User,
		trailingAssistant:    cfg.TrailingAssistant,
		defaultSystemMessage: cfg.DefaultSystemMessage,
		systemInUser:         cfg.SystemInUser,
		forceSystemTags:      cfg.AddSystemTagsEvenIfMessageIsEmpty,
		stripWhitespace:      strip,
	}, nil
}

// MustTemplate is NewTemplate for static configurations; it panics on error.
func MustTemplate(cfg TemplateConfig) *Template {
	t, err := NewTemplate(cfg)
	if err != nil {
		panic(err)
	}
	return t
}

// Config returns the configuration the template was built from.
func (t *Template) Config() TemplateConfig {
	strip := t.stripWhitespace
	return TemplateConfig{
		System:                            t.system,
		Assistant:                         t.assistant,
		User:                              t.user,
		TrailingAssistant:                 t.trailingAssistant,
		DefaultSystemMessage:              t.defaultSystemMessage,
		SystemInUser:                      t.systemInUser,
		AddSystemTagsEvenIfMessageIsEmpty: t.forceSystemTags,
		StripWhitespace:                   &strip,
	}
}

// TemplateError wraps the aggregated validation failures of a TemplateConfig.
type TemplateError struct {
	Err error
}

func (e *TemplateError) Error() string { return "invalid prompt template: " + e.Err.Error() }

func (e *TemplateError) Unwrap() error { return e.Err }

// Violations lists each violated constraint separately.
func (e *TemplateError) Violations() []error {
	var me *multierror.Error
	if errors.As(e.Err, &me) {
		return me.WrappedErrors()
	}
	return []error{e.Err}
}

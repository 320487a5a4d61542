package types

// Model is a servable model as described by a registry entry.
type Model struct {
	// Stable identifier clients use in the "model" field.
	// example: llama-2-7b-chat-hf
	ID string `json:"id" yaml:"id" toml:"id" example:"llama-2-7b-chat-hf"`
	// Name the backend worker knows the model by. Defaults to ID.
	// example: meta-llama/Llama-2-7b-chat-hf
	WorkerModel string `json:"worker_model,omitempty" yaml:"worker_model" toml:"worker_model" example:"meta-llama/Llama-2-7b-chat-hf"`
	// Organization tag reported in model listings.
	// example: llmonray
	OwnedBy string `json:"owned_by,omitempty" yaml:"owned_by" toml:"owned_by" example:"llmonray"`
	// Creation time (unix seconds) reported in model listings.
	Created int64 `json:"created,omitempty" yaml:"created" toml:"created"`
	// Optional family (e.g., llama, mistral, mpt).
	// example: llama
	Family string `json:"family,omitempty" yaml:"family" toml:"family" example:"llama"`
	// Opaque permission entries passed through to model listings.
	Permission []string `json:"permission,omitempty" yaml:"permission" toml:"permission"`
	// Path of the description file this model was loaded from.
	Path string `json:"path,omitempty" yaml:"-" toml:"-"`
}

// BackendName returns the model name to send to the worker.
func (m Model) BackendName() string {
	if m.WorkerModel != "" {
		return m.WorkerModel
	}
	return m.ID
}

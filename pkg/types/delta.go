package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Delta is the incremental payload of a streaming chat chunk. Exactly one of
// DeltaRole, DeltaContent or DeltaEOS.
type Delta interface {
	isDelta()
}

// DeltaRole announces the author of the message; sent in the first chunk.
type DeltaRole struct {
	Role string `json:"role"`
}

// DeltaContent carries a fragment of generated text.
type DeltaContent struct {
	Content string `json:"content"`
}

// DeltaEOS terminates the stream. It has no fields and serializes as {}.
type DeltaEOS struct{}

func (DeltaRole) isDelta()    {}
func (DeltaContent) isDelta() {}
func (DeltaEOS) isDelta()     {}

// DeltaChoice is one choice of a streaming chat chunk.
type DeltaChoice struct {
	Delta        Delta
	Index        int
	FinishReason *string
}

type deltaChoiceWire struct {
	Delta        json.RawMessage `json:"delta"`
	Index        int             `json:"index"`
	FinishReason *string         `json:"finish_reason"`
}

func (c DeltaChoice) MarshalJSON() ([]byte, error) {
	var delta []byte
	var err error
	switch d := c.Delta.(type) {
	case DeltaRole:
		delta, err = json.Marshal(d)
	case DeltaContent:
		delta, err = json.Marshal(d)
	case DeltaEOS:
		delta = []byte("{}")
	case nil:
		return nil, fmt.Errorf("delta choice %d: missing delta", c.Index)
	default:
		return nil, fmt.Errorf("delta choice %d: unsupported delta %T", c.Index, c.Delta)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(deltaChoiceWire{Delta: delta, Index: c.Index, FinishReason: c.FinishReason})
}

func (c *DeltaChoice) UnmarshalJSON(b []byte) error {
	var w deltaChoiceWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	d, err := decodeDelta(w.Delta)
	if err != nil {
		return err
	}
	c.Delta = d
	c.Index = w.Index
	c.FinishReason = w.FinishReason
	return nil
}

func decodeDelta(raw json.RawMessage) (Delta, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("delta: %w", err)
	}
	switch {
	case len(fields) == 0:
		return DeltaEOS{}, nil
	case len(fields) == 1 && fields["role"] != nil:
		var d DeltaRole
		err := strictDecode(raw, &d)
		return d, err
	case len(fields) == 1 && fields["content"] != nil:
		var d DeltaContent
		err := strictDecode(raw, &d)
		return d, err
	default:
		return nil, fmt.Errorf("delta: unexpected fields in %s", raw)
	}
}

func strictDecode(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

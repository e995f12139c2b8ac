package dataType

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message is one routed envelope, exactly one per wire line.
type Message struct {
	Src  string `json:"src"`
	Dest string `json:"dest"`
	Body Body   `json:"body"`
}

// Body carries the message kind, its correlation ids and the kind-specific
// fields. On the wire the payload fields sit next to type/msg_id/in_reply_to.
type Body struct {
	Type      Kind
	MsgID     uint64
	InReplyTo *uint64
	Payload   map[string]json.RawMessage
}

var errMissingType = errors.New("body has no type")

func (b Body) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(b.Payload)+3)
	for k, v := range b.Payload {
		out[k] = v
	}
	out["type"] = b.Type
	out["msg_id"] = b.MsgID
	if b.InReplyTo != nil {
		out["in_reply_to"] = *b.InReplyTo
	}
	return json.Marshal(out)
}

func (b *Body) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return errMissingType
	}

	raw, ok := fields["type"]
	if !ok {
		return errMissingType
	}
	var kind Kind
	if err := json.Unmarshal(raw, &kind); err != nil {
		return fmt.Errorf("body type: %w", err)
	}
	if kind == "" {
		return errMissingType
	}

	var msgID uint64
	if raw, ok := fields["msg_id"]; ok {
		if err := json.Unmarshal(raw, &msgID); err != nil {
			return fmt.Errorf("body msg_id: %w", err)
		}
	}

	var inReplyTo *uint64
	if raw, ok := fields["in_reply_to"]; ok && string(raw) != "null" {
		var v uint64
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("body in_reply_to: %w", err)
		}
		inReplyTo = &v
	}

	delete(fields, "type")
	delete(fields, "msg_id")
	delete(fields, "in_reply_to")

	*b = Body{
		Type:      kind,
		MsgID:     msgID,
		InReplyTo: inReplyTo,
		Payload:   fields,
	}
	return nil
}

// Decode unpacks the payload into v and checks its required fields.
// Every failure wraps ErrPayload.
func (b Body) Decode(v any) error {
	data, err := json.Marshal(b.Payload)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPayload, b.Type, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPayload, b.Type, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPayload, b.Type, err)
	}
	return nil
}

// NewBody builds a body of the given kind whose payload holds the fields of v.
// A nil v yields an empty payload.
func NewBody(kind Kind, v any) (*Body, error) {
	body := &Body{Type: kind, Payload: map[string]json.RawMessage{}}
	if v == nil {
		return body, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	if err := json.Unmarshal(data, &body.Payload); err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return body, nil
}

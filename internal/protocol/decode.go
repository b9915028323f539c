package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/streamhive/watchparty/pkg/validator"
)

var (
	ErrUnknownEvent     = errors.New("unknown event")
	ErrMalformedPayload = errors.New("malformed payload")
)

var validate = validator.NewValidator()

// Decode parses payload into the variant registered for event and validates it.
func Decode(event string, payload json.RawMessage) (Message, error) {
	var msg Message
	switch event {
	case EventJoinRoom:
		msg = &JoinRoom{}
	case EventRequestSync:
		msg = &SyncRequest{}
	case EventPlayerPlay:
		msg = &PlayRequest{}
	case EventPlayerStart:
		msg = &PlayerStart{}
	case EventPlayerSync:
		msg = &PlayerSync{}
	case EventPlayerUpdate:
		msg = &PlayerUpdate{}
	case EventChatMessage:
		msg = &ChatMessage{}
	case EventReaction:
		msg = &Reaction{}
	case EventUserJoined:
		msg = &UserJoined{}
	case EventUserLeft:
		msg = &UserLeft{}
	case EventStreamEnded:
		var ended StreamEnded
		if isEmpty(payload) {
			return ended, nil
		}
		if err := json.Unmarshal(payload, &ended); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedPayload, event, err)
		}
		return ended, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, event)
	}

	if isEmpty(payload) {
		return nil, fmt.Errorf("%w: %s: empty payload", ErrMalformedPayload, event)
	}
	if err := json.Unmarshal(payload, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedPayload, event, err)
	}
	if err := validate.Struct(msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedPayload, event, err)
	}

	return deref(msg), nil
}

// DecodeAs decodes payload and asserts the resulting variant.
func DecodeAs[T Message](event string, payload json.RawMessage) (T, error) {
	var zero T
	msg, err := Decode(event, payload)
	if err != nil {
		return zero, err
	}

	typed, ok := msg.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s decoded as %T", ErrMalformedPayload, event, msg)
	}

	return typed, nil
}

func isEmpty(payload json.RawMessage) bool {
	trimmed := bytes.TrimSpace(payload)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func deref(msg Message) Message {
	switch m := msg.(type) {
	case *JoinRoom:
		return *m
	case *SyncRequest:
		return *m
	case *PlayRequest:
		return *m
	case *PlayerStart:
		return *m
	case *PlayerSync:
		return *m
	case *PlayerUpdate:
		return *m
	case *ChatMessage:
		return *m
	case *Reaction:
		return *m
	case *UserJoined:
		return *m
	case *UserLeft:
		return *m
	}
	return msg
}

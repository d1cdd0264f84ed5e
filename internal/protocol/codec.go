package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"lookupd/internal/records"
)

// MaxDatagramSize is the largest datagram either side reads in a single receive.
const MaxDatagramSize = 64 * 1024

// DecodeError describes a datagram that does not hold a valid message.
type DecodeError struct {
	Reason string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("codec: error decoding message: %s", e.Reason)
}

// envelope is the wire representation shared by every message kind.
type envelope struct {
	MsgID   int             `json:"MsgId"`
	MsgType string          `json:"MsgType"`
	Content json.RawMessage `json:"Content"`
}

// wireQuery is the object form of a Lookup's content.
type wireQuery struct {
	Type string `json:"Type,omitempty"`
	Name string `json:"Name,omitempty"`
}

// wireRecord is the content of a LookupReply.
type wireRecord struct {
	Type     string `json:"Type"`
	Name     string `json:"Name"`
	Value    string `json:"Value"`
	TTL      int    `json:"TTL"`
	Priority *int   `json:"Priority,omitempty"`
}

// Decode parses a single datagram into a Message. It never panics on arbitrary input; every
// failure is reported as a *DecodeError.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, decodeErrorf("invalid envelope: err=%v", err)
	}

	if env.MsgID <= 0 {
		return Message{}, decodeErrorf("message id must be positive: id=%d", env.MsgID)
	}

	kind, ok := ParseKind(env.MsgType)
	if !ok {
		return Message{}, decodeErrorf("unknown message type: type=%q", env.MsgType)
	}

	payload, err := decodePayload(kind, bytes.TrimSpace(env.Content))
	if err != nil {
		return Message{}, err
	}

	return Message{ID: env.MsgID, Kind: kind, Payload: payload}, nil
}

// Encode serializes a Message. It fails if the payload does not match the message kind.
func Encode(msg Message) ([]byte, error) {
	content, err := encodePayload(msg)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(envelope{
		MsgID:   msg.ID,
		MsgType: msg.Kind.String(),
		Content: content,
	})
	if err != nil {
		return nil, fmt.Errorf("codec: error encoding message: kind=%s err=%v", msg.Kind, err)
	}

	return data, nil
}

// decodePayload validates that the content has the shape declared by the message kind.
func decodePayload(kind Kind, content []byte) (Payload, error) {
	switch kind {
	case Hello, Welcome, Error, End:
		var text string
		if len(content) > 0 {
			if err := json.Unmarshal(content, &text); err != nil {
				return nil, decodeErrorf("%s content must be a string: err=%v", kind, err)
			}
		}

		return Text(text), nil

	case Lookup:
		return decodeQuery(content)

	case LookupReply:
		var record wireRecord
		if err := strictUnmarshal(content, &record); err != nil {
			return nil, decodeErrorf("%s content must be a record: err=%v", kind, err)
		}

		if record.Type == "" || record.Name == "" || record.Value == "" {
			return nil, decodeErrorf("%s record is incomplete", kind)
		}

		return Answer{records.Record{
			Type:     record.Type,
			Name:     record.Name,
			Value:    record.Value,
			TTL:      record.TTL,
			Priority: record.Priority,
		}}, nil

	case Ack:
		return decodeAckRef(content)
	}

	return nil, decodeErrorf("unhandled message type: type=%s", kind)
}

// decodeQuery accepts either a {Type, Name} object or a bare name string. Missing fields are not a
// decode failure; they make the query malformed, which the session answers with an error.
func decodeQuery(content []byte) (Payload, error) {
	if len(content) == 0 {
		return nil, decodeErrorf("%s content is missing", Lookup)
	}

	switch content[0] {
	case '"':
		var name string
		if err := json.Unmarshal(content, &name); err != nil {
			return nil, decodeErrorf("%s content is not a valid string: err=%v", Lookup, err)
		}

		return Query{Name: name, Bare: true}, nil

	case '{':
		var query wireQuery
		if err := json.Unmarshal(content, &query); err != nil {
			return nil, decodeErrorf("%s content is not a valid query: err=%v", Lookup, err)
		}

		return Query{Type: query.Type, Name: query.Name}, nil
	}

	return nil, decodeErrorf("%s content must be an object or a string", Lookup)
}

// decodeAckRef accepts the acknowledged ID as either an integer or its decimal string form.
func decodeAckRef(content []byte) (Payload, error) {
	if len(content) == 0 {
		return nil, decodeErrorf("%s content is missing", Ack)
	}

	ref := AckRef{}

	if content[0] == '"' {
		var literal string
		if err := json.Unmarshal(content, &literal); err != nil {
			return nil, decodeErrorf("%s content is not a valid string: err=%v", Ack, err)
		}

		id, err := strconv.Atoi(literal)
		if err != nil {
			return nil, decodeErrorf("%s content is not a message id: content=%q", Ack, literal)
		}

		ref.ID = id
		ref.Quoted = true
	} else if err := strictUnmarshal(content, &ref.ID); err != nil {
		return nil, decodeErrorf("%s content is not a message id: err=%v", Ack, err)
	}

	if ref.ID <= 0 {
		return nil, decodeErrorf("%s references a non-positive message id: id=%d", Ack, ref.ID)
	}

	return ref, nil
}

// encodePayload serializes the content of a message after checking it against the message kind.
func encodePayload(msg Message) (json.RawMessage, error) {
	var content interface{}

	switch payload := msg.Payload.(type) {
	case Text:
		if msg.Kind != Hello && msg.Kind != Welcome && msg.Kind != Error && msg.Kind != End {
			return nil, mismatchError(msg)
		}

		content = string(payload)

	case Query:
		if msg.Kind != Lookup {
			return nil, mismatchError(msg)
		}

		if payload.Bare {
			content = payload.Name
		} else {
			content = wireQuery{Type: payload.Type, Name: payload.Name}
		}

	case Answer:
		if msg.Kind != LookupReply {
			return nil, mismatchError(msg)
		}

		content = wireRecord{
			Type:     payload.Type,
			Name:     payload.Name,
			Value:    payload.Value,
			TTL:      payload.TTL,
			Priority: payload.Priority,
		}

	case AckRef:
		if msg.Kind != Ack {
			return nil, mismatchError(msg)
		}

		if payload.Quoted {
			content = strconv.Itoa(payload.ID)
		} else {
			content = payload.ID
		}

	default:
		return nil, mismatchError(msg)
	}

	data, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("codec: error encoding content: kind=%s err=%v", msg.Kind, err)
	}

	return data, nil
}

// strictUnmarshal decodes content into v, rejecting a JSON null that would otherwise leave v
// untouched.
func strictUnmarshal(content []byte, v interface{}) error {
	if len(content) == 0 || bytes.Equal(content, []byte("null")) {
		return fmt.Errorf("content is null")
	}

	return json.Unmarshal(content, v)
}

func decodeErrorf(format string, v ...interface{}) *DecodeError {
	return &DecodeError{Reason: fmt.Sprintf(format, v...)}
}

func mismatchError(msg Message) error {
	return fmt.Errorf("codec: payload does not match message kind: kind=%s payload=%T", msg.Kind, msg.Payload)
}

package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookupd/internal/records"
)

func TestRoundTripValidShapes(t *testing.T) {
	cases := map[string]string{
		"hello":        `{"MsgId": 1, "MsgType": "Hello", "Content": "hello from client"}`,
		"welcome":      `{"MsgId": 1, "MsgType": "Welcome", "Content": "Welcome"}`,
		"lookup":       `{"MsgId": 2, "MsgType": "DNSLookup", "Content": {"Type": "A", "Name": "www.example.com"}}`,
		"lookup bare":  `{"MsgId": 4, "MsgType": "DNSLookup", "Content": "unknown.domain"}`,
		"lookup half":  `{"MsgId": 5, "MsgType": "DNSLookup", "Content": {"Type": "A"}}`,
		"reply":        `{"MsgId": 2, "MsgType": "DNSLookupReply", "Content": {"Type": "A", "Name": "www.example.com", "Value": "93.184.216.34", "TTL": 3600}}`,
		"reply mx":     `{"MsgId": 6, "MsgType": "DNSLookupReply", "Content": {"Type": "MX", "Name": "example.com", "Value": "mail.example.com", "TTL": 300, "Priority": 10}}`,
		"ack string":   `{"MsgId": 3, "MsgType": "Ack", "Content": "2"}`,
		"ack int":      `{"MsgId": 3, "MsgType": "Ack", "Content": 2}`,
		"error":        `{"MsgId": 4, "MsgType": "Error", "Content": "Domain not found"}`,
		"end":          `{"MsgId": 9, "MsgType": "End", "Content": "Session complete"}`,
		"unicode text": `{"MsgId": 7, "MsgType": "Hello", "Content": "héllo ✓"}`,
	}

	for name, wire := range cases {
		msg, err := Decode([]byte(wire))
		require.NoError(t, err, name)

		encoded, err := Encode(msg)
		require.NoError(t, err, name)
		assert.JSONEq(t, wire, string(encoded), name)
	}
}

func TestDecodeShapes(t *testing.T) {
	msg, err := Decode([]byte(`{"MsgId": 2, "MsgType": "DNSLookup", "Content": {"Type": "A", "Name": "www.example.com"}}`))
	require.NoError(t, err)
	assert.Equal(t, 2, msg.ID)
	assert.Equal(t, Lookup, msg.Kind)

	query, ok := msg.Query()
	require.True(t, ok)
	assert.True(t, query.WellFormed())
	assert.Equal(t, Query{Type: "A", Name: "www.example.com"}, query)

	msg, err = Decode([]byte(`{"MsgId": 4, "MsgType": "DNSLookup", "Content": "unknown.domain"}`))
	require.NoError(t, err)
	query, _ = msg.Query()
	assert.False(t, query.WellFormed())
	assert.Equal(t, "unknown.domain", query.Name)

	msg, err = Decode([]byte(`{"MsgId": 3, "MsgType": "Ack", "Content": "2"}`))
	require.NoError(t, err)
	acked, ok := msg.Acked()
	require.True(t, ok)
	assert.Equal(t, 2, acked)

	msg, err = Decode([]byte(`{"MsgId": 1, "MsgType": "Hello"}`))
	require.NoError(t, err)
	text, ok := msg.Text()
	require.True(t, ok)
	assert.Equal(t, "", text)
}

func TestDecodeFailures(t *testing.T) {
	cases := map[string]string{
		"empty":               ``,
		"garbage":             `\x00\x01 not json`,
		"truncated":           `{"MsgId": 1, "MsgType": "Hel`,
		"array":               `[1, 2, 3]`,
		"null":                `null`,
		"missing id":          `{"MsgType": "Hello", "Content": "hi"}`,
		"zero id":             `{"MsgId": 0, "MsgType": "Hello", "Content": "hi"}`,
		"negative id":         `{"MsgId": -3, "MsgType": "Hello", "Content": "hi"}`,
		"fractional id":       `{"MsgId": 1.5, "MsgType": "Hello", "Content": "hi"}`,
		"string id":           `{"MsgId": "1", "MsgType": "Hello", "Content": "hi"}`,
		"unknown kind":        `{"MsgId": 1, "MsgType": "Goodbye", "Content": "hi"}`,
		"internal kind name":  `{"MsgId": 1, "MsgType": "Lookup", "Content": "x"}`,
		"missing kind":        `{"MsgId": 1, "Content": "hi"}`,
		"hello number":        `{"MsgId": 1, "MsgType": "Hello", "Content": 5}`,
		"lookup number":       `{"MsgId": 2, "MsgType": "DNSLookup", "Content": 5}`,
		"lookup null":         `{"MsgId": 2, "MsgType": "DNSLookup", "Content": null}`,
		"lookup missing":      `{"MsgId": 2, "MsgType": "DNSLookup"}`,
		"lookup typed fields": `{"MsgId": 2, "MsgType": "DNSLookup", "Content": {"Type": 1, "Name": 2}}`,
		"reply incomplete":    `{"MsgId": 2, "MsgType": "DNSLookupReply", "Content": {"Type": "A", "Name": "x"}}`,
		"reply string":        `{"MsgId": 2, "MsgType": "DNSLookupReply", "Content": "x"}`,
		"ack word":            `{"MsgId": 3, "MsgType": "Ack", "Content": "two"}`,
		"ack zero":            `{"MsgId": 3, "MsgType": "Ack", "Content": 0}`,
		"ack object":          `{"MsgId": 3, "MsgType": "Ack", "Content": {"id": 2}}`,
		"ack null":            `{"MsgId": 3, "MsgType": "Ack", "Content": null}`,
		"trailing garbage":    `{"MsgId": 1, "MsgType": "Hello", "Content": "hi"} extra`,
	}

	for name, wire := range cases {
		_, err := Decode([]byte(wire))
		require.Error(t, err, name)

		var decodeErr *DecodeError
		assert.True(t, errors.As(err, &decodeErr), name)
	}
}

func TestEncodeRejectsMismatchedPayload(t *testing.T) {
	_, err := Encode(Message{ID: 1, Kind: Lookup, Payload: Text("www.example.com")})
	assert.Error(t, err)

	_, err = Encode(Message{ID: 1, Kind: Hello})
	assert.Error(t, err)

	_, err = Encode(Message{ID: 1, Kind: Ack, Payload: Answer{records.Record{Type: "A"}}})
	assert.Error(t, err)
}

func TestConstructors(t *testing.T) {
	priority := 10
	record := records.Record{Type: "MX", Name: "example.com", Value: "mail.example.com", TTL: 300, Priority: &priority}

	encoded, err := Encode(NewLookupReply(6, record))
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	answer, ok := decoded.Answer()
	require.True(t, ok)
	assert.Equal(t, record, answer)

	encoded, err = Encode(NewAck(3, 2))
	require.NoError(t, err)
	assert.JSONEq(t, `{"MsgId": 3, "MsgType": "Ack", "Content": "2"}`, string(encoded))

	encoded, err = Encode(NewLookup(5, Query{Name: "unknown.domain", Bare: true}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"MsgId": 5, "MsgType": "DNSLookup", "Content": "unknown.domain"}`, string(encoded))
}

func TestParseKind(t *testing.T) {
	for _, kind := range knownKinds {
		parsed, ok := ParseKind(kind.String())
		assert.True(t, ok)
		assert.Equal(t, kind, parsed)
	}

	assert.Equal(t, "DNSLookupReply", LookupReply.String())

	_, ok := ParseKind("dnslookup")
	assert.False(t, ok)
}

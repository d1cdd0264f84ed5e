//go:generate go run golang.org/x/tools/cmd/stringer -type=Kind -linecomment=true

package protocol

import (
	"fmt"

	"lookupd/internal/records"
)

// Kind discriminates the message variants. Its string form is the wire name.
type Kind int

const (
	// Hello opens a session.
	Hello Kind = iota // Hello
	// Welcome accepts a session.
	Welcome // Welcome
	// Lookup asks for a record.
	Lookup // DNSLookup
	// LookupReply carries a resolved record.
	LookupReply // DNSLookupReply
	// Ack acknowledges a LookupReply.
	Ack // Ack
	// Error reports a failed query or a protocol violation.
	Error // Error
	// End closes a session.
	End // End
)

var knownKinds = []Kind{Hello, Welcome, Lookup, LookupReply, Ack, Error, End}

// ParseKind looks up a Kind by its exact wire name.
func ParseKind(name string) (Kind, bool) {
	for _, kind := range knownKinds {
		if kind.String() == name {
			return kind, true
		}
	}

	return 0, false
}

// Payload is the kind-dependent content of a message. Exactly one payload type is valid for each
// Kind: Text for Hello, Welcome, Error and End; Query for Lookup; Answer for LookupReply; AckRef for
// Ack.
type Payload interface {
	isPayload()
}

// Text is a free-form payload.
type Text string

// Query describes the record a Lookup asks for. A query supplied on the wire as a bare string is
// kept, with Bare set, so that it can be answered with an error rather than dropped.
type Query struct {
	Type string
	Name string
	Bare bool
}

// Answer wraps the record a LookupReply resolves to.
type Answer struct {
	records.Record
}

// AckRef names the message being acknowledged. Quoted records whether the id was written as a
// string on the wire.
type AckRef struct {
	ID     int
	Quoted bool
}

func (Text) isPayload()   {}
func (Query) isPayload()  {}
func (Answer) isPayload() {}
func (AckRef) isPayload() {}

// WellFormed reports whether the query names both a type and a name.
func (q Query) WellFormed() bool {
	return !q.Bare && q.Type != "" && q.Name != ""
}

// String implements the Stringer interface for human-consumable representation.
func (q Query) String() string {
	if q.Bare {
		return fmt.Sprintf("Query{%q}", q.Name)
	}

	return fmt.Sprintf("Query{type=%q name=%q}", q.Type, q.Name)
}

// Message is one protocol message. IDs are chosen by the sender; a reply to a specific request
// echoes the request's ID.
type Message struct {
	ID      int
	Kind    Kind
	Payload Payload
}

// NewText creates a message of a text-carrying kind.
func NewText(id int, kind Kind, text string) Message {
	return Message{ID: id, Kind: kind, Payload: Text(text)}
}

// NewLookup creates a Lookup message.
func NewLookup(id int, query Query) Message {
	return Message{ID: id, Kind: Lookup, Payload: query}
}

// NewLookupReply creates a LookupReply message.
func NewLookupReply(id int, record records.Record) Message {
	return Message{ID: id, Kind: LookupReply, Payload: Answer{record}}
}

// NewAck creates an Ack message acknowledging the message with the given ID. The acknowledged ID
// is written as a string on the wire.
func NewAck(id int, acked int) Message {
	return Message{ID: id, Kind: Ack, Payload: AckRef{ID: acked, Quoted: true}}
}

// Text returns the text payload, if the message carries one.
func (m Message) Text() (string, bool) {
	text, ok := m.Payload.(Text)
	return string(text), ok
}

// Query returns the query payload of a Lookup.
func (m Message) Query() (Query, bool) {
	query, ok := m.Payload.(Query)
	return query, ok
}

// Answer returns the record carried by a LookupReply.
func (m Message) Answer() (records.Record, bool) {
	answer, ok := m.Payload.(Answer)
	return answer.Record, ok
}

// Acked returns the ID acknowledged by an Ack.
func (m Message) Acked() (int, bool) {
	ref, ok := m.Payload.(AckRef)
	return ref.ID, ok
}

// String implements the Stringer interface for human-consumable representation.
func (m Message) String() string {
	return fmt.Sprintf("Message{id=%d kind=%s payload=%v}", m.ID, m.Kind, m.Payload)
}

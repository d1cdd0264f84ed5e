package session

import (
	"fmt"

	"github.com/google/uuid"

	"lookupd/internal/protocol"
	"lookupd/internal/records"
)

// DefaultExpectedQueries is the number of exchanges per session when Rules does not set one.
const DefaultExpectedQueries = 4

// Reply texts sent to clients.
const (
	WelcomeText       = "Welcome"
	EndText           = "Session complete"
	NotFoundText      = "Domain not found"
	InvalidQueryText  = "Invalid query: type and name are required"
	InvalidFormatText = "invalid message format"
)

// Resolver answers record lookups. *records.Store implements it.
type Resolver interface {
	Resolve(recordType string, name string) (records.Record, bool)
}

// Session is the server-side view of one client's conversation. The zero value is the Idle
// session: no client is bound.
type Session struct {
	// ID traces the session through logs and metrics. It is assigned by Machine when the
	// session opens.
	ID uuid.UUID
	// Client is the address (ip:port) of the bound client.
	Client string
	State  State
	// QueriesHandled counts Lookups received, whether they were answered or rejected.
	QueriesHandled  int
	ExpectedQueries int
	// AwaitingAckFor is the ID of the LookupReply awaiting acknowledgment, or 0 if none.
	AwaitingAckFor int

	// lastID is the highest message ID seen in the session, whether received from the client or
	// chosen by the server. Server-initiated messages take the next ID above it.
	lastID int
}

// Active reports whether a client is bound.
func (s Session) Active() bool {
	return s.State != Idle
}

// Result is the effect of one transition.
type Result struct {
	// Session is the state after the transition. When the transition closed the session, it
	// is the final snapshot of the session, in the Idle state.
	Session Session
	// Replies are the messages to send back to the sender, in order.
	Replies []protocol.Message
	Outcome Outcome
	// Closed reports whether the transition ended the session.
	Closed bool
	// Reason explains ignored datagrams, violations, and closures.
	Reason string
}

// Rules parametrizes the state machine. Its methods are pure: they never mutate their inputs or
// perform I/O, so a Session can be driven through any sequence of messages in tests.
type Rules struct {
	// ExpectedQueries is the number of exchanges after which a session ends.
	ExpectedQueries int
	Resolver        Resolver
}

// Transition computes the effect of a decoded message from sender on session s.
func (r Rules) Transition(s Session, sender string, msg protocol.Message) Result {
	if !s.Active() {
		if msg.Kind != protocol.Hello {
			return ignore(s, fmt.Sprintf("%s without an active session", msg.Kind))
		}

		return r.open(sender, msg)
	}

	// Other senders never learn that a session is in progress.
	if sender != s.Client {
		return ignore(s, "sender is not the active client")
	}

	s = s.seen(msg.ID)

	if msg.Kind == protocol.End {
		return Result{Session: closed(s), Outcome: Hangup, Closed: true, Reason: "client ended the session"}
	}

	switch s.State {
	case AwaitingQuery:
		switch msg.Kind {
		case protocol.Lookup:
			return r.lookup(s, msg)
		case protocol.Ack:
			return violation(s, msg, "acknowledgment without a pending reply")
		}

	case AwaitingAck:
		switch msg.Kind {
		case protocol.Ack:
			return ack(s, msg)
		case protocol.Lookup:
			return violation(s, msg, "lookup while a reply awaits acknowledgment")
		}
	}

	return violation(s, msg, fmt.Sprintf("unexpected %s in state %s", msg.Kind, s.State))
}

// Malformed computes the effect of an undecodable datagram from sender on session s. The active
// client is told its message was invalid; anyone else is ignored. The session state is unchanged
// either way.
func (r Rules) Malformed(s Session, sender string) Result {
	if !s.Active() {
		return ignore(s, "undecodable datagram without an active session")
	}

	if sender != s.Client {
		return ignore(s, "sender is not the active client")
	}

	id := s.nextID()

	return Result{
		Session: s,
		Replies: []protocol.Message{protocol.NewText(id, protocol.Error, InvalidFormatText)},
		Outcome: Malformed,
		Reason:  InvalidFormatText,
	}
}

// open binds sender as the active client.
func (r Rules) open(sender string, hello protocol.Message) Result {
	expected := r.ExpectedQueries
	if expected <= 0 {
		expected = DefaultExpectedQueries
	}

	return Result{
		Session: Session{
			Client:          sender,
			State:           AwaitingQuery,
			ExpectedQueries: expected,
			lastID:          hello.ID,
		},
		Replies: []protocol.Message{protocol.NewText(hello.ID, protocol.Welcome, WelcomeText)},
		Outcome: Opened,
	}
}

// lookup handles a Lookup in AwaitingQuery. Every Lookup counts toward the expected queries,
// whether or not it resolves.
func (r Rules) lookup(s Session, msg protocol.Message) Result {
	s.QueriesHandled++

	query, _ := msg.Query()
	if query.Bare {
		// A bare name never matches, since every record is typed.
		return reject(s, msg.ID, NotFoundText)
	}

	if !query.WellFormed() {
		return reject(s, msg.ID, InvalidQueryText)
	}

	record, ok := r.Resolver.Resolve(query.Type, query.Name)
	if !ok {
		return reject(s, msg.ID, NotFoundText)
	}

	s.State = AwaitingAck
	s.AwaitingAckFor = msg.ID

	return Result{
		Session: s,
		Replies: []protocol.Message{protocol.NewLookupReply(msg.ID, record)},
		Outcome: Answered,
	}
}

// reject answers a Lookup with an Error. No Ack follows an Error, so the exchange is complete as
// soon as it is sent and may be the one that ends the session.
func reject(s Session, requestID int, reason string) Result {
	replies := []protocol.Message{protocol.NewText(requestID, protocol.Error, reason)}

	if s.QueriesHandled >= s.ExpectedQueries {
		return complete(s, replies, Rejected)
	}

	return Result{Session: s, Replies: replies, Outcome: Rejected, Reason: reason}
}

// ack handles an Ack in AwaitingAck, completing the pending exchange.
func ack(s Session, msg protocol.Message) Result {
	acked, _ := msg.Acked()
	if acked != s.AwaitingAckFor {
		return violation(s, msg, fmt.Sprintf(
			"acknowledgment for unknown reply: acked=%d pending=%d",
			acked,
			s.AwaitingAckFor,
		))
	}

	s.State = AwaitingQuery
	s.AwaitingAckFor = 0

	if s.QueriesHandled >= s.ExpectedQueries {
		return complete(s, nil, Acknowledged)
	}

	return Result{Session: s, Outcome: Acknowledged}
}

// complete appends End to the replies and closes the session.
func complete(s Session, replies []protocol.Message, outcome Outcome) Result {
	id := s.nextID()

	return Result{
		Session: closed(s),
		Replies: append(replies, protocol.NewText(id, protocol.End, EndText)),
		Outcome: outcome,
		Closed:  true,
		Reason:  fmt.Sprintf("completed %d queries", s.QueriesHandled),
	}
}

// violation answers a protocol violation with an Error echoing the offending message's ID and
// closes the session.
func violation(s Session, msg protocol.Message, reason string) Result {
	return Result{
		Session: closed(s),
		Replies: []protocol.Message{protocol.NewText(msg.ID, protocol.Error, "Protocol violation: "+reason)},
		Outcome: Violated,
		Closed:  true,
		Reason:  reason,
	}
}

// ignore leaves the session untouched and sends nothing.
func ignore(s Session, reason string) Result {
	return Result{Session: s, Outcome: Ignored, Reason: reason}
}

// seen raises the session's ID floor to include a message ID received from the client.
func (s Session) seen(id int) Session {
	if id > s.lastID {
		s.lastID = id
	}

	return s
}

// nextID allocates an ID for a server-initiated message, above every ID seen so far.
func (s *Session) nextID() int {
	s.lastID++
	return s.lastID
}

// closed returns the final snapshot of a session that is ending.
func closed(s Session) Session {
	s.State = Idle
	s.AwaitingAckFor = 0

	return s
}

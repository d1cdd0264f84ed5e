//go:generate go run golang.org/x/tools/cmd/stringer -type=State,Outcome

package session

// State is the position of the server in the conversation with its active client.
type State int

const (
	// Idle means no client is bound. It is both the initial state and the state every session
	// returns to when it closes.
	Idle State = iota
	// AwaitingQuery means the handshake is done and the next Lookup may arrive.
	AwaitingQuery
	// AwaitingAck means a LookupReply was sent and its Ack has not arrived yet.
	AwaitingAck
)

// Outcome classifies how a single incoming datagram was handled.
type Outcome int

const (
	// Ignored datagrams produce no reply and no state change.
	Ignored Outcome = iota
	// Opened means a Hello started a new session.
	Opened
	// Answered means a Lookup resolved and a LookupReply was sent.
	Answered
	// Rejected means a Lookup was malformed or unresolvable and an Error was sent.
	Rejected
	// Acknowledged means the pending LookupReply was acknowledged.
	Acknowledged
	// Violated means the client broke the protocol and the session was closed.
	Violated
	// Hangup means the client ended the session itself.
	Hangup
	// Malformed means an undecodable datagram from the active client was answered with an Error.
	Malformed
)

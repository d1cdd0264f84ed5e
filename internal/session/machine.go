package session

import (
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"lib.kevinlin.info/aperture/lib"

	"lookupd/internal/log"
	"lookupd/internal/metrics"
	"lookupd/internal/protocol"
)

// Metric tags describing why a session closed.
const (
	closeComplete  = "complete"
	closeViolation = "violation"
	closeHangup    = "hangup"
	closeAbandoned = "abandoned"
)

// elapsedTimer measures the lifetime of the active session.
type elapsedTimer interface {
	Elapsed() time.Duration
}

// Machine owns the single live Session. It is not safe for concurrent use; the server's receive
// loop is its only caller.
type Machine struct {
	rules   Rules
	current Session
	client  net.Addr
	timer   elapsedTimer
	hook    metrics.SessionHook
	logger  log.Logger

	// lastActive is when the bound client last sent a datagram the session accepted.
	lastActive time.Time
	// lastID carries the message ID floor from one session to the next.
	lastID int

	// ignoredLog bounds warnings about ignored traffic, which anyone on the network can
	// generate.
	ignoredLog *rate.Limiter
}

// NewMachine creates a Machine in the Idle state.
func NewMachine(rules Rules, hook metrics.SessionHook, logger log.Logger) *Machine {
	return &Machine{
		rules:      rules,
		hook:       hook,
		logger:     logger,
		ignoredLog: rate.NewLimiter(rate.Every(time.Second), 10),
	}
}

// Session returns a copy of the live session.
func (m *Machine) Session() Session {
	return m.current
}

// Handle applies a decoded message from sender and returns the replies to send back to it.
func (m *Machine) Handle(sender net.Addr, msg protocol.Message) []protocol.Message {
	m.logger.Debug(
		"session: received message: sender=%s state=%s msg=%v",
		sender,
		m.current.State,
		msg,
	)

	return m.apply(sender, m.rules.Transition(m.current, sender.String(), msg))
}

// HandleMalformed applies an undecodable datagram from sender and returns the replies to send back
// to it.
func (m *Machine) HandleMalformed(sender net.Addr, cause error) []protocol.Message {
	m.logger.Debug(
		"session: received undecodable datagram: sender=%s state=%s err=%v",
		sender,
		m.current.State,
		cause,
	)

	return m.apply(sender, m.rules.Malformed(m.current, sender.String()))
}

// Abandon discards the live session without notifying the client, e.g. after a transport failure
// or receive timeout. It is a noop when no session is active.
func (m *Machine) Abandon(reason string) {
	if !m.current.Active() {
		return
	}

	m.logger.Warn(
		"session: abandoning session: session=%s client=%s state=%s queries=%d reason=%s",
		m.current.ID,
		m.current.Client,
		m.current.State,
		m.current.QueriesHandled,
		reason,
	)

	m.close(closeAbandoned)
}

// ExpireIdle abandons the live session if its client has sent nothing the session accepted for
// longer than timeout. Traffic from other senders does not count as activity. It reports whether
// the session was abandoned.
func (m *Machine) ExpireIdle(timeout time.Duration, now time.Time) bool {
	if !m.current.Active() || timeout <= 0 {
		return false
	}

	if now.Sub(m.lastActive) <= timeout {
		return false
	}

	m.Abandon("receive timeout")

	return true
}

// apply commits a transition result, emitting logs and metrics along the way.
func (m *Machine) apply(sender net.Addr, res Result) []protocol.Message {
	switch res.Outcome {
	case Ignored:
		m.hook.EmitIgnored(sender)

		if m.ignoredLog.Allow() {
			m.logger.Warn(
				"session: ignoring datagram: sender=%s state=%s reason=%s",
				sender,
				m.current.State,
				res.Reason,
			)
		}

		return nil

	case Opened:
		res.Session.ID = uuid.New()
		res.Session = res.Session.seen(m.lastID)
		m.client = sender
		m.timer = lib.NewStopwatch()
		m.hook.EmitSessionOpen(sender)

		m.logger.Info(
			"session: opened session: session=%s client=%s expected_queries=%d",
			res.Session.ID,
			res.Session.Client,
			res.Session.ExpectedQueries,
		)

	default:
		m.hook.EmitExchange(strings.ToLower(res.Outcome.String()), sender)

		m.logger.Debug(
			"session: handled message: session=%s outcome=%s queries=%d/%d reason=%s",
			m.current.ID,
			res.Outcome,
			res.Session.QueriesHandled,
			m.current.ExpectedQueries,
			res.Reason,
		)
	}

	m.current = res.Session
	m.lastActive = time.Now()

	if !res.Closed {
		return res.Replies
	}

	switch res.Outcome {
	case Violated:
		m.logger.Warn(
			"session: protocol violation: session=%s client=%s reason=%s",
			m.current.ID,
			m.current.Client,
			res.Reason,
		)
		m.close(closeViolation)

	case Hangup:
		m.close(closeHangup)

	default:
		m.close(closeComplete)
	}

	return res.Replies
}

// close returns the machine to Idle.
func (m *Machine) close(reason string) {
	var duration time.Duration
	if m.timer != nil {
		duration = m.timer.Elapsed()
	}

	m.hook.EmitSessionClose(duration, reason, m.client)

	m.logger.Info(
		"session: closed session: session=%s client=%s queries=%d duration=%v reason=%s",
		m.current.ID,
		m.current.Client,
		m.current.QueriesHandled,
		duration,
		reason,
	)

	m.lastID = m.current.lastID
	m.current = Session{}
	m.client = nil
	m.timer = nil
}

// Package session implements the server side of the lookup protocol: the state machine that binds
// a single client to the server for a fixed number of query exchanges, and the handler that feeds
// it datagrams from the transport.
//
// The transport guarantees neither ordering nor delivery, so every property of a conversation
// (who the client is, which reply awaits an acknowledgment, how many exchanges have completed) is
// tracked here, outside any single message. Rules.Transition is a pure function over Session values;
// Machine owns the one live Session and adds logging and metrics around it.
package session

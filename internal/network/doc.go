// Package network contains the UDP transport used by both processes. The server side gives each
// received datagram net.Conn-like semantics so that handlers can read a request and write replies
// to its sender; the client side wraps a connected UDP socket with per-operation timeouts.
package network

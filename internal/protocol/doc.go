// Package protocol defines the messages exchanged between the lookup client and server, and the
// codec that converts them to and from their JSON wire representation. One datagram carries
// exactly one message.
package protocol

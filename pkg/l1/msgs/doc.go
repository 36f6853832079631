// Package msgs defines the wire messages between a device node and hosts.
//
// Every message is a protobuf message wrapped in Typed, which carries the
// type ID and, for commands and replies, a sequence number pairing them.
package msgs

// Package accessory publishes the outlet to an accessory-protocol stack and
// handles the writes controllers send back.
//
// Register walks the stack through its registration sequence and hands the
// calling goroutine to the stack's run loop. Writes arrive on the stack's own
// goroutines through the WriteCallback produced by Adapt, which validates
// each request before a WriteHandler sees it.
//
// The stack itself is an external collaborator described by the Stack
// interface. internal/hapstack provides an in-process implementation.
package accessory

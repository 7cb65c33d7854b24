// Package intake runs the multi-turn symptom intake conversation.
//
// It defines the Record collected across turns, the fixed slot order and the
// total transition function over it (Next), the sealed Answer variants a turn
// may carry, the Store capability sessions persist through, and the Service
// that reads, merges, writes and hands completed records to the decision
// engine.
//
// Turns for one session are not serialized. A Store write is a full-record
// overwrite, so two turns racing on the same session id are last-write-wins
// and one of them can be lost. Conversational turns from a single user are
// expected to be sequential; concurrent writers on one session are not a
// supported scenario.
package intake

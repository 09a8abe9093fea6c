// Package coordinator implements the Coordinator state machine of
// SPEC_FULL.md §B.5 (spec.md §4.4, §5): a single logical task that
// serializes start/stop/can-stop/lookup/status requests and termination
// events onto one goroutine draining two channels, the only place the
// Registry is mutated.
//
// The request/reply shape is grounded on muster's internal/orchestrator
// event-publishing idiom (a background goroutine selecting on a
// notification channel and a done channel), generalized from "fan out
// state-change events to subscribers" into "serialize every mutation
// through one command channel", since spec.md §5 requires a stronger
// ordering guarantee (reply to request i before request i+1 begins) than
// a pub/sub fan-out alone provides.
package coordinator

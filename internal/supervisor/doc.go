// Package supervisor defines the external collaborator contracts of
// SPEC_FULL.md §B.4 (spec.md §6): the process supervisor the coordinator
// core delegates spawn/terminate/watch to, and the service contract a
// worker implements to declare its needs. Neither the supervisor nor the
// services themselves are implemented here — those are out of scope per
// spec.md §1 — only the interfaces the core calls.
//
// internal/supervisor/fake provides a runnable in-process implementation
// used by the Coordinator tests, grounded on
// the mockService test doubles in muster's internal/orchestrator/
// retry_test.go, generalized into a small working supervisor since this
// module's tests need many independently controllable instances.
package supervisor

// Package session owns the client-side state of one scan session and the rules for moving between its statuses.
//
// # Lifecycle
//
//	Idle ──trigger──▶ Validating ──ok──▶ InFlight ──▶ Success | Failed
//	                      │
//	                      └──invalid──▶ Idle (with error)
//
// Success and Failed accept a new trigger. A trigger while InFlight, or before the backend reported healthy, is
// refused and leaves the state untouched.
//
// [State] is a value: every transition returns a new State. [Controller] holds the current one behind a mutex so
// that several front-ends (or concurrent HTTP handlers) share the single-in-flight guarantee. The scan request
// itself runs outside the lock.
//
// The backend health is probed once per controller. It is never re-probed.
package session

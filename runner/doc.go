// Package runner drives the outer conversation of every session.
//
// The Runner is the single entry point of a transport (the websocket server
// in cmd/voicemeshd, tests, examples). For each user turn it decides who
// answers:
//
//   - If an agent is active, the turn is routed to it through the session's
//     engine.Manager and its text stream is forwarded as is.
//   - Otherwise the outer model sees the outer dialogue plus one meta-tool per
//     agent. Selecting a meta-tool activates that agent, seeds its dialogue
//     with the user message and streams its answer in the same turn.
//
// # Session lifecycle
//
//	sess, _ := r.Open(ctx, "", user)      // store entry + agent manager
//	for text := range r.HandleTurn(ctx, sess, "play quiz") { ... }
//	r.Abort(sess)                         // from any goroutine
//	_ = r.Close(ctx, sess)                // cleanup agents, drop session
//
// Public methods are safe for concurrent use across sessions. Turns of one
// session must not overlap; Abort is the only call meant to race a turn.
package runner

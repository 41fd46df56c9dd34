// Package session houses concrete implementations of core.SessionStore. The
// interface and the Session connection handle live in the core package so
// that agents and the engine never depend on concrete storage.
//
// Sessions here are live connection state (dialogues, active agent, abort
// flag), so the store hands out shared handles rather than snapshots.
package session

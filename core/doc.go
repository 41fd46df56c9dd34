// Package core provides the foundational domain types and contracts used by
// voicemesh:
//
//   - Message and Dialogue (the ordered, session scoped conversation log)
//   - ActionResult (the tagged outcome every tool handler returns)
//   - Session (the live connection handle with active-agent pointer and abort flag)
//   - ToolContext (the implicit user / connection / agent arguments of a tool call)
//   - MemoryStore and SessionStore contracts for pluggable backends
//   - the error taxonomy (ErrParse, ErrNotFound, ErrProvider, ErrToolExecution, ErrPersistence)
//
// Implementation concerns (model providers, concrete agents, persistence) live
// in other packages.
package core

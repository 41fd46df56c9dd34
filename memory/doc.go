// Package memory contains the long-term memory layer of agents: concrete
// MemoryStore implementations, the background Saver and the AgentMemory glue
// agents talk to. The store interface and record types reside in the core
// package. Depend on core.MemoryStore in your code and select an
// implementation (the in-memory store below, memory/postgres or memory/mongo)
// at wiring time.
//
// Saving never blocks a turn: AgentMemory.SaveAsync copies the dialogue and
// submits the write to a bounded Saver. Failures are logged, not returned.
package memory

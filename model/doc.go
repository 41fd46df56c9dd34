// Package model defines the provider-agnostic contract agents use to talk to
// language models.
//
// Core goals:
//   - Stream text fragments and raw tool-call fragments as they arrive
//   - Keep accumulation of tool-call fragments in the agent, not the provider
//   - Offer a plain (no tools) completion path for suggestion and rewrite prompts
//   - Facilitate lightweight scripting for tests (ScriptedModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface so agents remain
// decoupled from vendor SDKs.
package model

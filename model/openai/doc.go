// Package openai adapts the OpenAI Chat Completions streaming API to
// model.Model.
//
// Usage:
//
//	llm := openai.NewModel(func(o *openai.Options) {
//	    o.Model = "gpt-4o-mini"
//	})
//	chunks, errs := llm.StreamWithTools(ctx, model.Request{Messages: msgs, Tools: defs})
package openai

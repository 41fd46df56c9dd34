// Package scriptmurder implements the murder mystery role-play agent. Besides
// hosting the game it can suggest the next host instruction from the
// dialogue so far.
package scriptmurder

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/voicemesh/agent"
	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/model"
)

// Name is the agent and meta-tool name.
const Name = "script_murder"

const prompt = `You host a murder mystery role-play game for one player.
Set the scene, introduce the characters and let the player question them and collect clues.
Keep every turn short, end it with a question or a choice for the player, and never reveal the culprit before the player accuses someone.
When the player wants to stop playing, call exit_agent.`

// DefaultSuggestPrompt asks for the next host instruction. The rendered
// dialogue is appended to it.
const DefaultSuggestPrompt = `You direct a murder mystery game. Read the game so far and write the single next instruction for the host:
what to reveal, whom to introduce or what to ask the player. Answer with the instruction only.

Game so far:
`

const suggestUserText = "Generate the next instruction"

const description = "Play a murder mystery role-play game. Call when the user is bored, " +
	"wants to play a game or asks for a murder mystery."

// Options configure the agent.
type Options struct {
	// SuggestPrompt replaces DefaultSuggestPrompt.
	SuggestPrompt string
}

// Agent is the murder mystery agent.
type Agent struct {
	*agent.Base
	suggestPrompt string
}

// New creates a murder mystery agent bound to deps.Session.
func New(deps agent.Deps, optFns ...func(o *Options)) (*Agent, error) {
	opts := Options{SuggestPrompt: DefaultSuggestPrompt}
	for _, fn := range optFns {
		fn(&opts)
	}

	base, err := agent.NewBase(agent.Config{
		Name:        Name,
		DisplayName: "murder mystery",
		Description: description,
		Prompt:      prompt,
	}, deps)
	if err != nil {
		return nil, err
	}

	return &Agent{Base: base, suggestPrompt: opts.SuggestPrompt}, nil
}

// SuggestGenerate asks the model, without tools, for the next host
// instruction given the dialogue so far.
func (a *Agent) SuggestGenerate(ctx context.Context, d *core.Dialogue) (string, error) {
	req := model.Request{
		SessionID: a.Session().ID,
		Messages: []core.Message{
			core.NewSystemMessage(a.suggestPrompt + d.Transcript()),
			core.NewUserMessage(suggestUserText),
		},
	}

	text, err := model.Complete(ctx, a.Model(), req)
	if err != nil {
		a.Logger().Warn("agent.suggest.failed", "agent", a.Name(), "error", err.Error())

		if !errors.Is(err, core.ErrProvider) {
			err = core.NewProviderError(a.Model().Info().Provider, err)
		}

		return "", fmt.Errorf("suggest: %w", err)
	}

	return text, nil
}

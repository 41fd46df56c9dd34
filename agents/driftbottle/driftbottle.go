// Package driftbottle implements the drift bottle agent: users throw
// anonymous messages into a shared sea, catch other people's bottles and
// reply to them.
package driftbottle

import (
	"context"

	"github.com/hupe1980/voicemesh/agent"
	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/internal/bizapi"
)

// Name is the agent and meta-tool name.
const Name = "drift_bottle"

// API is the subset of the business client the agent uses.
type API interface {
	UserStatus(ctx context.Context, u *core.User) (bizapi.UserStatus, error)
	PendingReplies(ctx context.Context, u *core.User, num int) ([]bizapi.Reply, error)
	CatchBottles(ctx context.Context, u *core.User, num int) (bizapi.CatchResult, error)
	ThrowBottle(ctx context.Context, u *core.User, content string) (bizapi.Bottle, error)
	ReplyBottle(ctx context.Context, u *core.User, bottleID int64, content string) (bizapi.Bottle, error)
}

// Agent is the drift bottle agent. It keeps no long-term memory.
type Agent struct {
	*agent.Base
}

// New creates a drift bottle agent bound to deps.Session.
func New(deps agent.Deps, api API) (*Agent, error) {
	t := &tools{api: api}

	base, err := agent.NewBase(agent.Config{
		Name:        Name,
		DisplayName: "drift bottle",
		Description: description,
		Prompt:      systemPrompt,
		Tools:       t.all(),
	}, deps)
	if err != nil {
		return nil, err
	}

	return &Agent{Base: base}, nil
}

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/tool"
)

// dispatch parses the accumulated arguments and calls the registered tool.
// It never fails: parse errors, unknown tools and handler panics become
// ERROR or NOT_FOUND results.
func (b *Base) dispatch(ctx context.Context, call core.ToolCall) (res core.ActionResult) {
	args, err := parseArguments(call.Arguments)
	if err != nil {
		b.logger.Warn("agent.tool.parse_error",
			"agent", b.name,
			"tool", call.Name,
			"error", core.NewParseError(call.Name, err).Error(),
		)

		return core.Failed(ParseErrorText)
	}

	t, ok := b.tools.Get(call.Name)
	if !ok {
		b.logger.Warn("agent.tool.not_found", "agent", b.name, "tool", call.Name)
		return core.NotFound(fmt.Sprintf(NotFoundText, call.Name))
	}

	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err := core.NewToolExecutionError(call.Name, fmt.Errorf("panic: %v", r))
			b.logger.Error("agent.tool.panic", "agent", b.name, "tool", call.Name, "error", err.Error())

			res = core.Failed(tool.DefaultErrorText)
		}
	}()

	b.logger.Info("agent.tool.dispatch", "agent", b.name, "tool", call.Name, "fc_id", call.ID)

	res = t.Call(core.NewToolContext(ctx, b.session, b, call.ID, b.logger), args)

	b.logger.Debug("agent.tool.done",
		"agent", b.name,
		"tool", call.Name,
		"kind", res.Kind.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return res
}

// parseArguments decodes the argument buffer. An empty buffer or a JSON value
// that is not an object yields an empty map.
func parseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}

	args, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}

	return args, nil
}

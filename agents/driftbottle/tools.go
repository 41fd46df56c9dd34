package driftbottle

import (
	"fmt"
	"strings"

	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/internal/util"
	"github.com/hupe1980/voicemesh/tool"
)

type tools struct {
	api API
}

func (t *tools) all() []tool.Tool {
	return []tool.Tool{
		tool.NewFunctionTool(
			"get_user_status",
			"Get the user's drift bottle statistics: pending replies, bottles caught today and bottles thrown.",
			nil,
			t.userStatus,
		),
		tool.NewFunctionTool(
			"throw_bottle",
			"Throw a drift bottle carrying what the user wants to share.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"content": map[string]any{"type": "string", "description": "What to write into the bottle"},
				},
				"required": []string{"content"},
			},
			t.throw,
		),
		tool.NewFunctionTool(
			"catch_bottle",
			"Catch drift bottles from the sea.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"num": map[string]any{"type": "integer", "description": "How many bottles to catch, 1 or 5", "enum": []any{1, 5}},
				},
				"required": []string{"num"},
			},
			t.catch,
		),
		tool.NewFunctionTool(
			"get_pending_replies",
			"Fetch replies other people left on the user's bottles.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"num": map[string]any{"type": "integer", "description": "How many replies to fetch, 1 or 5", "enum": []any{1, 5}},
				},
				"required": []string{"num"},
			},
			t.pendingReplies,
		),
		tool.NewFunctionTool(
			"reply_to_bottle",
			"Reply to a bottle the user caught.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"bottle_id":     map[string]any{"type": "integer", "description": "Id of the caught bottle"},
					"reply_content": map[string]any{"type": "string", "description": "The reply text"},
				},
				"required": []string{"bottle_id", "reply_content"},
			},
			t.reply,
		),
	}
}

func (t *tools) userStatus(tc *core.ToolContext, _ map[string]any) (core.ActionResult, error) {
	status, err := t.api.UserStatus(tc.Context(), tc.User())
	if err != nil {
		return retry(tc, "get_user_status", err), nil
	}

	return core.RequestLLM(fmt.Sprintf(
		"Drift bottle status: %d unread replies, %d of %d bottles caught today, %d bottles thrown in total. Summarise this for the user.",
		status.PendingRepliesCount, status.TodayCatchCount, status.MaxDailyCatch, status.TotalBottlesCreated,
	)), nil
}

func (t *tools) throw(tc *core.ToolContext, args map[string]any) (core.ActionResult, error) {
	content := strings.TrimSpace(util.StringArg(args, "content"))

	bottle, err := t.api.ThrowBottle(tc.Context(), tc.User(), content)
	if err != nil {
		return retry(tc, "throw_bottle", err), nil
	}

	if bottle.Content == "" {
		return core.RequestLLM(throwFailedText), nil
	}

	return core.RequestLLM(throwOKText), nil
}

func (t *tools) catch(tc *core.ToolContext, args map[string]any) (core.ActionResult, error) {
	num := util.IntArg(args, "num", 1)

	res, err := t.api.CatchBottles(tc.Context(), tc.User(), num)
	if err != nil {
		return retry(tc, "catch_bottle", err), nil
	}

	if res.LimitReached {
		return core.Respond(fmt.Sprintf(limitReachedText, 5)), nil
	}

	if len(res.Bottles) == 0 {
		return core.RequestLLM(emptySeaText), nil
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Caught %d bottle(s):\n", len(res.Bottles))

	for i, bottle := range res.Bottles {
		fmt.Fprintf(&b, "%d. bottle_id=%d content=%q\n", i+1, bottle.BottleID, bottle.Content)
	}

	b.WriteString(catchRules)

	return core.RequestLLM(b.String()), nil
}

func (t *tools) pendingReplies(tc *core.ToolContext, args map[string]any) (core.ActionResult, error) {
	num := util.IntArg(args, "num", 1)

	replies, err := t.api.PendingReplies(tc.Context(), tc.User(), num)
	if err != nil {
		return retry(tc, "get_pending_replies", err), nil
	}

	if len(replies) == 0 {
		return core.RequestLLM(noRepliesText), nil
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%d new repl(ies):\n", len(replies))

	for i, r := range replies {
		fmt.Fprintf(&b, "%d. your bottle %q got the reply %q\n", i+1, r.BottleContent, r.ReplyContent)
	}

	b.WriteString(repliesRules)

	return core.RequestLLM(b.String()), nil
}

type replyArgs struct {
	BottleID     int64  `json:"bottle_id"`
	ReplyContent string `json:"reply_content"`
}

func (t *tools) reply(tc *core.ToolContext, args map[string]any) (core.ActionResult, error) {
	var in replyArgs
	if err := util.DecodeArgs(args, &in); err != nil {
		return core.ActionResult{}, err
	}

	bottle, err := t.api.ReplyBottle(tc.Context(), tc.User(), in.BottleID, strings.TrimSpace(in.ReplyContent))
	if err != nil {
		return retry(tc, "reply_to_bottle", err), nil
	}

	if bottle.Content == "" {
		return core.Respond(replyFailedText), nil
	}

	return core.Respond(replyOKText), nil
}

func retry(tc *core.ToolContext, name string, err error) core.ActionResult {
	tc.Logger().Warn("driftbottle.api.failed", "tool", name, "error", err.Error())
	return core.Respond(retryText)
}

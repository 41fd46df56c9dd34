package runner

import (
	"context"
	"errors"
	"strings"

	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/model"
)

var errStopped = errors.New("consumer stopped")

type outerOutcome struct {
	text    string
	agent   string
	aborted bool
}

// consume forwards outer text as it arrives and picks up the name of the
// first tool call. Only the name matters: agent meta-tools take no routing
// arguments.
func (r *Runner) consume(
	ctx context.Context,
	sess *core.Session,
	chunks <-chan model.Chunk,
	errs <-chan error,
	yield func(string) bool,
) (outerOutcome, error) {
	var (
		text  strings.Builder
		name  string
		index = -1
	)

	for chunks != nil || errs != nil {
		select {
		case <-ctx.Done():
			return outerOutcome{aborted: true}, nil
		case ck, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}

			if sess.Aborted() {
				return outerOutcome{aborted: true}, nil
			}

			if ck.Text != "" {
				if !yield(ck.Text) {
					return outerOutcome{}, errStopped
				}

				text.WriteString(ck.Text)
			}

			if tc := ck.ToolCall; tc != nil {
				if index == -1 {
					index = tc.Index
				}

				if tc.Index == index && name == "" {
					name = tc.Name
				}
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}

			if err != nil {
				// A stream failing because the turn was cancelled is an abort.
				if ctx.Err() != nil || sess.Aborted() {
					return outerOutcome{aborted: true}, nil
				}

				if !errors.Is(err, core.ErrProvider) {
					err = core.NewProviderError(r.model.Info().Provider, err)
				}

				return outerOutcome{}, err
			}
		}
	}

	if sess.Aborted() {
		return outerOutcome{aborted: true}, nil
	}

	return outerOutcome{text: text.String(), agent: name}, nil
}

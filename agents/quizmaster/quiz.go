package quizmaster

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/internal/bizapi"
	"github.com/hupe1980/voicemesh/internal/util"
)

const (
	fetchFailedText = "Sorry, I could not get any questions. Please try again later."
	idleText        = "No question yet, please start a quiz first."
)

// quiz is the progress of one running quiz.
type quiz struct {
	Questions []bizapi.Question
	Index     int
}

type tools struct {
	api API
}

func (t *tools) start(tc *core.ToolContext, args map[string]any) (core.ActionResult, error) {
	var (
		questions []bizapi.Question
		err       error
	)

	if book := strings.TrimSpace(util.StringArg(args, "book_name")); book != "" {
		questions, err = t.api.QuestionsByBook(tc.Context(), book)
	} else {
		num := util.IntArg(args, "num", 1)
		if num < 1 {
			num = 1
		}

		questions, err = t.api.QuestionsByDifficulty(tc.Context(), util.StringArg(args, "difficulty"), num)
	}

	if err != nil {
		tc.Logger().Warn("quizmaster.fetch.failed", "error", err.Error())
		return core.Respond(fetchFailedText), nil
	}

	if len(questions) == 0 {
		return core.Respond(fetchFailedText), nil
	}

	q := &quiz{Questions: questions}
	tc.Session().SetState(stateKey, q)

	return core.Respond(formatQuestion(q.Questions[0], 0, len(q.Questions))), nil
}

func (t *tools) answer(tc *core.ToolContext, args map[string]any) (core.ActionResult, error) {
	sess := tc.Session()

	v, ok := sess.GetState(stateKey)
	q, _ := v.(*quiz)

	if !ok || q == nil || q.Index >= len(q.Questions) {
		return core.Respond(idleText), nil
	}

	current := q.Questions[q.Index]
	correct := strings.ToUpper(strings.TrimSpace(current.CorrectAnswer))
	given := normalizeAnswer(util.StringArg(args, "answer"), current.Options)

	var feedback string
	if given == correct {
		feedback = fmt.Sprintf("Correct! The answer is %s.", correct)
	} else {
		feedback = fmt.Sprintf("Wrong. The correct answer is %s.", correct)
	}

	q.Index++

	if q.Index < len(q.Questions) {
		next := formatQuestion(q.Questions[q.Index], q.Index, len(q.Questions))
		return core.Respond(feedback + "\n\n" + next), nil
	}

	sess.DeleteState(stateKey)

	return core.Respond(fmt.Sprintf("%s\n\nWell done, you finished all %d questions!", feedback, len(q.Questions))), nil
}

// formatQuestion renders question i of total for reading aloud.
func formatQuestion(q bizapi.Question, i, total int) string {
	var intro string

	switch {
	case total > 1 && q.Difficulty != "":
		intro = fmt.Sprintf("Question %d, difficulty: %s", i+1, q.Difficulty)
	case total > 1:
		intro = fmt.Sprintf("Question %d", i+1)
	case q.Difficulty != "":
		intro = "Difficulty: " + q.Difficulty
	default:
		intro = "Listen to the question"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s. %s ", intro, strings.TrimSpace(q.QuestionContent))

	n := 0

	for _, o := range q.Options {
		if o.OptionCode == "" || o.OptionContent == "" {
			continue
		}

		fmt.Fprintf(&b, "Option %s: %s. ", o.OptionCode, o.OptionContent)
		n++
	}

	if n == 0 {
		b.WriteString("The options are missing. ")
	}

	b.WriteString("Please choose your answer.")

	return b.String()
}

// normalizeAnswer maps a spoken answer to an option letter. A bare letter
// wins, then the option text ("the dog"), then a standalone letter inside a
// sentence ("I think B").
func normalizeAnswer(input string, options []bizapi.Option) string {
	words := strings.FieldsFunc(strings.ToUpper(input), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	if len(words) == 1 && isChoice(words[0]) {
		return words[0]
	}

	lower := strings.ToLower(input)
	for _, o := range options {
		content := strings.ToLower(strings.TrimSpace(o.OptionContent))
		if content != "" && strings.Contains(lower, content) {
			return strings.ToUpper(o.OptionCode)
		}
	}

	for _, w := range words {
		if isChoice(w) {
			return w
		}
	}

	return strings.Join(words, "")
}

func isChoice(w string) bool {
	return len(w) == 1 && w[0] >= 'A' && w[0] <= 'D'
}

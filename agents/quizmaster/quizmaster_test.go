package quizmaster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/voicemesh/agent"
	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/internal/bizapi"
	"github.com/hupe1980/voicemesh/model"
)

var twoQuestions = []bizapi.Question{
	{
		QuestionContent: "What colour is the sky?",
		Options:         []bizapi.Option{{OptionCode: "A", OptionContent: "Green"}, {OptionCode: "B", OptionContent: "Blue"}},
		CorrectAnswer:   "B",
		Difficulty:      "easy",
	},
	{
		QuestionContent: "How many legs does a spider have?",
		Options:         []bizapi.Option{{OptionCode: "A", OptionContent: "Eight"}, {OptionCode: "B", OptionContent: "Six"}},
		CorrectAnswer:   "A",
	},
}

// newQuizServer serves both question endpoints and records the last payload.
func newQuizServer(t *testing.T, questions []bizapi.Question, last *map[string]any) *bizapi.Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		body["path"] = r.URL.Path
		*last = body

		_ = json.NewEncoder(w).Encode(map[string]any{"questions": questions})
	}))
	t.Cleanup(srv.Close)

	c, err := bizapi.New(func(o *bizapi.Options) {
		o.BookReadingURL = srv.URL
		o.RateLimit = 0
	})
	require.NoError(t, err)

	return c
}

func newTestAgent(t *testing.T, m model.Model, api API) (*Agent, *core.Session) {
	t.Helper()

	sess := core.NewSession("s1", &core.User{ID: "u1"})

	a, err := New(agent.Deps{Model: m, Session: sess}, api)
	require.NoError(t, err)

	return a, sess
}

func call(t *testing.T, a *Agent, sess *core.Session, name string, args map[string]any) core.ActionResult {
	t.Helper()

	tl, ok := a.Tools().Get(name)
	require.True(t, ok)

	return tl.Call(core.NewToolContext(context.Background(), sess, a, "call_1", nil), args)
}

func TestQuiz_FullRound(t *testing.T) {
	var last map[string]any
	a, sess := newTestAgent(t, model.NewScriptedModel(), newQuizServer(t, twoQuestions, &last))

	res := call(t, a, sess, "quiz", map[string]any{"num": float64(2), "difficulty": "easy"})
	assert.Equal(t, core.ActionRespond, res.Kind)
	assert.Equal(t,
		"Question 1, difficulty: easy. What colour is the sky? Option A: Green. Option B: Blue. Please choose your answer.",
		res.Text(),
	)
	assert.Equal(t, "/quiz-arena/get-questions-by-difficulty", last["path"])
	assert.Equal(t, "easy", last["difficulty"])

	res = call(t, a, sess, "answer_quiz", map[string]any{"answer": "I think it is blue"})
	assert.Contains(t, res.Text(), "Correct! The answer is B.")
	assert.Contains(t, res.Text(), "Question 2. How many legs")

	res = call(t, a, sess, "answer_quiz", map[string]any{"answer": "b."})
	assert.Contains(t, res.Text(), "Wrong. The correct answer is A.")
	assert.Contains(t, res.Text(), "finished all 2 questions")

	_, ok := sess.GetState(stateKey)
	assert.False(t, ok)

	res = call(t, a, sess, "answer_quiz", map[string]any{"answer": "A"})
	assert.Equal(t, idleText, res.Text())
}

func TestQuiz_ByBook(t *testing.T) {
	var last map[string]any
	a, sess := newTestAgent(t, model.NewScriptedModel(), newQuizServer(t, twoQuestions[:1], &last))

	res := call(t, a, sess, "quiz", map[string]any{"book_name": "Matilda"})
	assert.Equal(t, "/book-etest/get-questions-by-book-name", last["path"])
	assert.Equal(t, "Matilda", last["bookName"])
	assert.True(t, len(res.Text()) > 0)
	assert.Contains(t, res.Text(), "Difficulty: easy.")
}

func TestQuiz_NoQuestions(t *testing.T) {
	var last map[string]any
	a, sess := newTestAgent(t, model.NewScriptedModel(), newQuizServer(t, nil, &last))

	res := call(t, a, sess, "quiz", map[string]any{})
	assert.Equal(t, fetchFailedText, res.Text())
	assert.InDelta(t, 1, last["num"], 0)
}

func TestQuiz_IdleAnswer(t *testing.T) {
	a, sess := newTestAgent(t, model.NewScriptedModel(), &fakeAPI{})

	res := call(t, a, sess, "answer_quiz", map[string]any{"answer": "A"})
	assert.Equal(t, idleText, res.Text())
}

func TestQuiz_StatePerSession(t *testing.T) {
	var last map[string]any
	api := newQuizServer(t, twoQuestions, &last)

	a1, s1 := newTestAgent(t, model.NewScriptedModel(), api)
	a2, s2 := newTestAgent(t, model.NewScriptedModel(), api)

	call(t, a1, s1, "quiz", map[string]any{"num": float64(2)})

	res := call(t, a2, s2, "answer_quiz", map[string]any{"answer": "A"})
	assert.Equal(t, idleText, res.Text())
}

func TestGenerate_PlayQuiz(t *testing.T) {
	var last map[string]any
	m := model.NewScriptedModel(model.ScriptedTurn{Chunks: model.ToolCallChunks("call_1", "quiz", "{}")})
	a, _ := newTestAgent(t, m, newQuizServer(t, twoQuestions[1:], &last))

	d := core.NewDialogue(core.NewUserMessage("play quiz"))

	var out []string
	for s := range a.Generate(context.Background(), d) {
		out = append(out, s)
	}

	require.Len(t, out, 1)
	assert.Equal(t,
		"Listen to the question. How many legs does a spider have? Option A: Eight. Option B: Six. Please choose your answer.",
		out[0],
	)
}

func TestNormalizeAnswer(t *testing.T) {
	opts := []bizapi.Option{{OptionCode: "A", OptionContent: "a cat"}, {OptionCode: "B", OptionContent: "Dog"}}

	tests := []struct {
		in   string
		want string
	}{
		{"B", "B"},
		{" c! ", "C"},
		{"it's a dog", "B"},
		{"A cat", "A"},
		{"I choose d", "D"},
		{"no idea", "NOIDEA"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeAnswer(tt.in, opts))
		})
	}
}

type fakeAPI struct{}

func (fakeAPI) QuestionsByDifficulty(context.Context, string, int) ([]bizapi.Question, error) {
	return nil, nil
}

func (fakeAPI) QuestionsByBook(context.Context, string) ([]bizapi.Question, error) {
	return nil, nil
}

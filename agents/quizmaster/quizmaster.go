// Package quizmaster implements the quiz agent. It draws multiple choice
// questions from the quiz arena or a book's e-test, reads them one at a time
// and checks the spoken answers.
package quizmaster

import (
	"context"

	"github.com/hupe1980/voicemesh/agent"
	"github.com/hupe1980/voicemesh/internal/bizapi"
	"github.com/hupe1980/voicemesh/tool"
)

// Name is the agent and meta-tool name.
const Name = "quiz_master"

// stateKey holds the running quiz in session state.
const stateKey = "quiz_master.quiz"

// API is the subset of the business client the agent uses.
type API interface {
	QuestionsByDifficulty(ctx context.Context, difficulty string, num int) ([]bizapi.Question, error)
	QuestionsByBook(ctx context.Context, bookName string) ([]bizapi.Question, error)
}

const prompt = `You are a friendly quiz master for young readers.
Call quiz to start a quiz. Pass book_name when the user names a book, difficulty and num when they ask for them.
When the user answers a question, call answer_quiz with exactly what they said.
Read tool answers to the user without changes. When the user wants to stop, call exit_agent.`

const description = "Start a quiz. Call when the user wants to answer questions, test themselves, " +
	"or do the quiz of a book they read."

// Agent is the quiz master agent.
type Agent struct {
	*agent.Base
}

// New creates a quiz master bound to deps.Session.
func New(deps agent.Deps, api API) (*Agent, error) {
	t := &tools{api: api}

	base, err := agent.NewBase(agent.Config{
		Name:        Name,
		DisplayName: "quiz",
		Description: description,
		Prompt:      prompt,
		Tools: []tool.Tool{
			tool.NewFunctionTool(
				"quiz",
				"Fetch quiz questions and read the first one.",
				map[string]any{
					"type": "object",
					"properties": map[string]any{
						"difficulty": map[string]any{"type": "string", "description": "Question difficulty, empty for any"},
						"num":        map[string]any{"type": "integer", "description": "Number of questions, default 1"},
						"book_name":  map[string]any{"type": "string", "description": "Title of a book to quiz on"},
					},
				},
				t.start,
			),
			tool.NewFunctionTool(
				"answer_quiz",
				"Check the user's answer to the current question.",
				map[string]any{
					"type": "object",
					"properties": map[string]any{
						"answer": map[string]any{"type": "string", "description": "The user's answer as spoken"},
					},
					"required": []string{"answer"},
				},
				t.answer,
			),
		},
	}, deps)
	if err != nil {
		return nil, err
	}

	return &Agent{Base: base}, nil
}

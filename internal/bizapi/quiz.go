package bizapi

import "context"

// Option is one answer choice of a question.
type Option struct {
	OptionCode    string `json:"optionCode"`
	OptionContent string `json:"optionContent"`
}

// Question is a multiple choice quiz question.
type Question struct {
	QuestionContent string   `json:"questionContent"`
	Options         []Option `json:"options"`
	CorrectAnswer   string   `json:"correctAnswer"`
	Difficulty      string   `json:"difficulty,omitempty"`
}

type questionsResponse struct {
	Questions []Question `json:"questions"`
}

// QuestionsByDifficulty draws num questions from the quiz arena. An empty
// difficulty means any.
func (c *Client) QuestionsByDifficulty(ctx context.Context, difficulty string, num int) ([]Question, error) {
	var out questionsResponse

	payload := struct {
		Num        int    `json:"num"`
		Difficulty string `json:"difficulty,omitempty"`
	}{Num: num, Difficulty: difficulty}

	if err := c.postJSON(ctx, c.bookReadingURL, "/quiz-arena/get-questions-by-difficulty", payload, &out); err != nil {
		return nil, err
	}

	return out.Questions, nil
}

// QuestionsByBook fetches the e-test questions of a book.
func (c *Client) QuestionsByBook(ctx context.Context, bookName string) ([]Question, error) {
	var out questionsResponse

	payload := struct {
		BookName string `json:"bookName"`
	}{BookName: bookName}

	if err := c.postJSON(ctx, c.resourceURL, "/book-etest/get-questions-by-book-name", payload, &out); err != nil {
		return nil, err
	}

	return out.Questions, nil
}

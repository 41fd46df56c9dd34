package bizapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/voicemesh/core"
)

var testUser = &core.User{ID: "u1", Type: "student", Name: "Mia", GroupID: "g1", SchoolID: "s1"}

// recorder serves canned JSON per path and remembers the decoded payloads.
type recorder struct {
	payloads map[string]map[string]any
	replies  map[string]string
	status   int
}

func newRecorder() *recorder {
	return &recorder{payloads: map[string]map[string]any{}, replies: map[string]string{}}
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(req.Body).Decode(&body)
	r.payloads[req.URL.Path] = body

	if r.status != 0 {
		w.WriteHeader(r.status)
		_, _ = w.Write([]byte("boom"))

		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(r.replies[req.URL.Path]))
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(func(o *Options) {
		o.BookReadingURL = srv.URL + "/"
		o.RateLimit = 0
	})
	require.NoError(t, err)

	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New()
	require.Error(t, err)

	_, err = New(func(o *Options) { o.BookReadingURL = "localhost" })
	require.Error(t, err)

	_, err = New(func(o *Options) {
		o.BookReadingURL = "http://books"
		o.ResourceURL = "::bad"
	})
	require.Error(t, err)

	c, err := New(func(o *Options) { o.BookReadingURL = "http://books/" })
	require.NoError(t, err)
	assert.Equal(t, "http://books", c.bookReadingURL)
	assert.Equal(t, "http://books", c.resourceURL)
}

func TestClient_UserStatus(t *testing.T) {
	rec := newRecorder()
	rec.replies["/drift-bottle/get-user-status"] = `{"pendingRepliesCount":2,"todayCatchCount":1,"maxDailyCatch":5,"totalBottlesCreated":7}`
	c := newTestClient(t, rec)

	status, err := c.UserStatus(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, UserStatus{PendingRepliesCount: 2, TodayCatchCount: 1, MaxDailyCatch: 5, TotalBottlesCreated: 7}, status)
	assert.Equal(t, map[string]any{"userId": "u1", "userType": "student"}, rec.payloads["/drift-bottle/get-user-status"])
}

func TestClient_CatchBottles(t *testing.T) {
	rec := newRecorder()
	rec.replies["/drift-bottle/catch-drift-bottle"] = `{"limitReached":false,"bottles":[{"bottleId":12,"content":"hello sea","time":"2024-05-01"}]}`
	c := newTestClient(t, rec)

	res, err := c.CatchBottles(context.Background(), testUser, 1)
	require.NoError(t, err)
	assert.False(t, res.LimitReached)
	require.Len(t, res.Bottles, 1)
	assert.Equal(t, int64(12), res.Bottles[0].BottleID)

	payload := rec.payloads["/drift-bottle/catch-drift-bottle"]
	assert.Equal(t, "u1", payload["userId"])
	assert.Equal(t, "Mia", payload["userName"])
	assert.Equal(t, "g1", payload["unitId"])
	assert.Equal(t, "s1", payload["schoolId"])
	assert.InDelta(t, 1, payload["num"], 0)
}

func TestClient_PendingRepliesAndReply(t *testing.T) {
	rec := newRecorder()
	rec.replies["/drift-bottle/get-pending-replies"] = `[{"replyId":3,"replyContent":"hi back","replyTime":"now","bottleContent":"hi"}]`
	rec.replies["/drift-bottle/reply"] = `{"content":"thanks"}`
	c := newTestClient(t, rec)

	replies, err := c.PendingReplies(context.Background(), testUser, 5)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "hi back", replies[0].ReplyContent)

	b, err := c.ReplyBottle(context.Background(), testUser, 42, "thanks")
	require.NoError(t, err)
	assert.Equal(t, "thanks", b.Content)
	assert.InDelta(t, 42, rec.payloads["/drift-bottle/reply"]["bottleId"], 0)
}

func TestClient_Questions(t *testing.T) {
	rec := newRecorder()
	questions := `{"questions":[{"questionContent":"2+2?","options":[{"optionCode":"A","optionContent":"3"},{"optionCode":"B","optionContent":"4"}],"correctAnswer":"B","difficulty":"easy"}]}`
	rec.replies["/quiz-arena/get-questions-by-difficulty"] = questions
	rec.replies["/book-etest/get-questions-by-book-name"] = questions
	c := newTestClient(t, rec)

	qs, err := c.QuestionsByDifficulty(context.Background(), "", 3)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "B", qs[0].CorrectAnswer)
	assert.NotContains(t, rec.payloads["/quiz-arena/get-questions-by-difficulty"], "difficulty")

	qs, err = c.QuestionsByBook(context.Background(), "Charlotte's Web")
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "Charlotte's Web", rec.payloads["/book-etest/get-questions-by-book-name"]["bookName"])
}

func TestClient_StatusError(t *testing.T) {
	rec := newRecorder()
	rec.status = http.StatusBadGateway
	c := newTestClient(t, rec)

	_, err := c.ThrowBottle(context.Background(), testUser, "hello")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "boom", statusErr.Body)
}

func TestClient_DecodeError(t *testing.T) {
	rec := newRecorder()
	rec.replies["/drift-bottle/catch-drift-bottle"] = `not json`
	c := newTestClient(t, rec)

	_, err := c.CatchBottles(context.Background(), testUser, 1)
	require.ErrorIs(t, err, ErrDecodeResponse)
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	rec := newRecorder()
	rec.replies["/drift-bottle/get-user-status"] = `{}`

	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)

	c, err := New(func(o *Options) {
		o.BookReadingURL = srv.URL
		o.RateLimit = 0.001
		o.Burst = 1
	})
	require.NoError(t, err)

	_, err = c.UserStatus(context.Background(), testUser)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = c.UserStatus(ctx, testUser)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDecodeResponse))
}

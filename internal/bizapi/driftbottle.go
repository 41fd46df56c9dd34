package bizapi

import (
	"context"

	"github.com/hupe1980/voicemesh/core"
)

// UserStatus is the drift bottle usage summary of a user.
type UserStatus struct {
	PendingRepliesCount int `json:"pendingRepliesCount"`
	TodayCatchCount     int `json:"todayCatchCount"`
	MaxDailyCatch       int `json:"maxDailyCatch"`
	TotalBottlesCreated int `json:"totalBottlesCreated"`
	TotalBottlesCaught  int `json:"totalBottlesCaught"`
}

// Bottle is a drift bottle as returned by catch, throw and reply.
type Bottle struct {
	BottleID int64  `json:"bottleId"`
	Content  string `json:"content"`
	Time     string `json:"time,omitempty"`
}

// CatchResult is the outcome of catching bottles.
type CatchResult struct {
	LimitReached bool     `json:"limitReached"`
	Bottles      []Bottle `json:"bottles"`
}

// Reply is a reply another user left on one of the user's bottles.
type Reply struct {
	ReplyID       int64  `json:"replyId"`
	ReplyContent  string `json:"replyContent"`
	ReplyTime     string `json:"replyTime"`
	BottleContent string `json:"bottleContent"`
}

type userPayload struct {
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
	UserName string `json:"userName,omitempty"`
	UnitID   string `json:"unitId,omitempty"`
	SchoolID string `json:"schoolId,omitempty"`
}

func newUserPayload(u *core.User) userPayload {
	if u == nil {
		return userPayload{}
	}

	return userPayload{
		UserID:   u.ID,
		UserType: u.Type,
		UserName: u.Name,
		UnitID:   u.GroupID,
		SchoolID: u.SchoolID,
	}
}

// UserStatus fetches the drift bottle statistics of u.
func (c *Client) UserStatus(ctx context.Context, u *core.User) (UserStatus, error) {
	var out UserStatus

	payload := struct {
		UserID   string `json:"userId"`
		UserType string `json:"userType"`
	}{UserID: u.ID, UserType: u.Type}

	err := c.postJSON(ctx, c.bookReadingURL, "/drift-bottle/get-user-status", payload, &out)

	return out, err
}

// PendingReplies fetches up to num unheard replies.
func (c *Client) PendingReplies(ctx context.Context, u *core.User, num int) ([]Reply, error) {
	var out []Reply

	payload := struct {
		userPayload
		Num int `json:"num"`
	}{userPayload: newUserPayload(u), Num: num}

	err := c.postJSON(ctx, c.bookReadingURL, "/drift-bottle/get-pending-replies", payload, &out)

	return out, err
}

// CatchBottles catches up to num bottles.
func (c *Client) CatchBottles(ctx context.Context, u *core.User, num int) (CatchResult, error) {
	var out CatchResult

	payload := struct {
		userPayload
		Num int `json:"num"`
	}{userPayload: newUserPayload(u), Num: num}

	err := c.postJSON(ctx, c.bookReadingURL, "/drift-bottle/catch-drift-bottle", payload, &out)

	return out, err
}

// ThrowBottle creates a bottle. The service echoes the content on success.
func (c *Client) ThrowBottle(ctx context.Context, u *core.User, content string) (Bottle, error) {
	var out Bottle

	payload := struct {
		userPayload
		Content string `json:"content"`
	}{userPayload: newUserPayload(u), Content: content}

	err := c.postJSON(ctx, c.bookReadingURL, "/drift-bottle/create-drift-bottle", payload, &out)

	return out, err
}

// ReplyBottle answers the bottle bottleID. The service echoes the content on
// success.
func (c *Client) ReplyBottle(ctx context.Context, u *core.User, bottleID int64, content string) (Bottle, error) {
	var out Bottle

	payload := struct {
		BottleID int64 `json:"bottleId"`
		userPayload
		Content string `json:"content"`
	}{BottleID: bottleID, userPayload: newUserPayload(u), Content: content}

	err := c.postJSON(ctx, c.bookReadingURL, "/drift-bottle/reply", payload, &out)

	return out, err
}

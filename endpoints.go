package tinder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// activityDateLayout renders dates the way the API expects: UTC with milliseconds.
const activityDateLayout = "2006-01-02T15:04:05.000Z"

type authRequest struct {
	FacebookToken string `json:"facebook_token"`
	FacebookID    string `json:"facebook_id"`
}

type authResponse struct {
	Token string `json:"token"`
}

// Authorize exchanges Facebook credentials for a session token and keeps it on the client.
func (c *Client) Authorize(ctx context.Context, fbToken, fbUserID string) (json.RawMessage, error) {
	if err := required("fbToken", fbToken); err != nil {
		return nil, err
	}
	if err := required("fbUserID", fbUserID); err != nil {
		return nil, err
	}

	body, err := c.do(ctx, postRequest("/auth", "/auth", authRequest{
		FacebookToken: fbToken,
		FacebookID:    fbUserID,
	}))
	if err != nil {
		return nil, err
	}

	auth, err := Decode[authResponse](body)
	if err != nil {
		return nil, fmt.Errorf("tinder: decode auth response: %w", err)
	}
	if auth.Token == "" {
		return nil, fmt.Errorf("%w: auth response carried no token", ErrNotAuthorized)
	}

	c.SetToken(auth.Token)
	c.logger.Info("authorized", "fb_user_id", fbUserID)

	return body, nil
}

// GetRecommendations returns the current batch of recommended users.
func (c *Client) GetRecommendations(ctx context.Context) (json.RawMessage, error) {
	return c.doAuthorized(ctx, getRequest("/user/recs", "/user/recs"))
}

// GetAccount returns the account metadata of the session user.
func (c *Client) GetAccount(ctx context.Context) (json.RawMessage, error) {
	return c.doAuthorized(ctx, getRequest("/meta", "/meta"))
}

// GetUser returns the profile of userID.
func (c *Client) GetUser(ctx context.Context, userID string) (json.RawMessage, error) {
	if err := required("userID", userID); err != nil {
		return nil, err
	}
	return c.doAuthorized(ctx, getRequest("/user/{id}", "/user/"+url.PathEscape(userID)))
}

type updatesRequest struct {
	LastActivityDate string `json:"last_activity_date"`
}

// GetUpdates returns matches, messages and blocks since the given time.
// The zero time asks for everything.
func (c *Client) GetUpdates(ctx context.Context, since time.Time) (json.RawMessage, error) {
	return c.getUpdates(ctx, FormatActivityDate(since))
}

// GetUpdatesSince is GetUpdates for a date already in ISO-8601 form; "" asks for everything.
// The string is sent unchanged.
func (c *Client) GetUpdatesSince(ctx context.Context, since string) (json.RawMessage, error) {
	return c.getUpdates(ctx, since)
}

// The filter travels in a POST body, not a query string; the API expects it there.
func (c *Client) getUpdates(ctx context.Context, since string) (json.RawMessage, error) {
	return c.doAuthorized(ctx, postRequest("/updates", "/updates", updatesRequest{
		LastActivityDate: since,
	}))
}

// FormatActivityDate renders t in the ISO-8601 form used by the updates endpoint.
// The zero time renders as "".
func FormatActivityDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(activityDateLayout)
}

// isoLayouts are the ISO-8601 forms ParseActivityDate understands, most specific first.
// Forms without an offset are read as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseActivityDate reads an ISO-8601 date or date-time. "" is the zero time.
func ParseActivityDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ArgumentError{Arg: "since", Reason: fmt.Sprintf("%q is not an ISO-8601 date", s)}
}

type messageRequest struct {
	Message string `json:"message"`
}

// SendMessage sends message to the match matchID.
func (c *Client) SendMessage(ctx context.Context, matchID, message string) (json.RawMessage, error) {
	if err := required("matchID", matchID); err != nil {
		return nil, err
	}
	if err := required("message", message); err != nil {
		return nil, err
	}
	return c.doAuthorized(ctx, postRequest("/user/matches/{id}", "/user/matches/"+url.PathEscape(matchID), messageRequest{
		Message: message,
	}))
}

// likeResponse uses json.Number so counts sent as quoted strings still decode.
type likeResponse struct {
	LikesRemaining   *json.Number `json:"likes_remaining"`
	RateLimitedUntil *json.Number `json:"rate_limited_until"`
}

// outOfLikes reports whether the like count is present and zero.
func (r likeResponse) outOfLikes() bool {
	if r.LikesRemaining == nil {
		return false
	}
	n, err := r.LikesRemaining.Float64()
	return err == nil && n == 0
}

// Like likes userID's photo. When the response reports no likes remaining the call fails
// with an OutOfLikesError instead of returning the body.
func (c *Client) Like(ctx context.Context, userID, photoID, contentHash string, sNumber int64) (json.RawMessage, error) {
	if err := required("userID", userID); err != nil {
		return nil, err
	}
	if err := required("photoID", photoID); err != nil {
		return nil, err
	}
	if err := required("contentHash", contentHash); err != nil {
		return nil, err
	}
	if sNumber == 0 {
		return nil, &ArgumentError{Arg: "sNumber", Reason: "is required"}
	}

	req := getRequest("/like/{id}", "/like/"+url.PathEscape(userID))
	req.Query = url.Values{
		"photoId":      {photoID},
		"content_hash": {contentHash},
		"s_number":     {strconv.FormatInt(sNumber, 10)},
	}

	body, err := c.doAuthorized(ctx, req)
	if err != nil {
		return nil, err
	}

	like, err := Decode[likeResponse](body)
	if err != nil {
		c.logger.Debug("like response carries no readable like count", "user_id", userID, "error", err)
		return body, nil
	}
	if like.outOfLikes() {
		outOfLikes := &OutOfLikesError{}
		if like.RateLimitedUntil != nil {
			if ms, err := like.RateLimitedUntil.Int64(); err == nil {
				outOfLikes.RateLimitedUntil = time.UnixMilli(ms)
			}
		}
		return nil, outOfLikes
	}

	return body, nil
}

// Pass passes on userID.
func (c *Client) Pass(ctx context.Context, userID string) (json.RawMessage, error) {
	if err := required("userID", userID); err != nil {
		return nil, err
	}
	return c.doAuthorized(ctx, getRequest("/pass/{id}", "/pass/"+url.PathEscape(userID)))
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ppiankov/newsguard/internal/model"
)

// History fetches the user's past scans from GET /history, in server order.
// An empty userID returns an empty slice without contacting the service.
func (c *Client) History(ctx context.Context, userID string) ([]model.HistoryEntry, error) {
	if userID == "" {
		return []model.HistoryEntry{}, nil
	}

	fail := func(status int, cause error) error {
		return &HistoryFetchError{UserID: userID, StatusCode: status, Message: HistoryFailedMessage, Cause: cause}
	}

	q := url.Values{}
	q.Set("user_id", userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/history?"+q.Encode(), nil)
	if err != nil {
		return nil, fail(0, fmt.Errorf("create request: %w", err))
	}

	status, statusText, body, err := c.do(req)
	if err != nil {
		return nil, fail(status, err)
	}
	if !isSuccess(status) {
		return nil, fail(status, &statusError{StatusCode: status, Status: statusText})
	}

	var entries []model.HistoryEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fail(status, fmt.Errorf("unmarshal response: %w", err))
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}

	return entries, nil
}

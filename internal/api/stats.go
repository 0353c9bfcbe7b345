package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ppiankov/newsguard/internal/model"
)

// Stats fetches the current model diagnostics from GET /stats
func (c *Client) Stats(ctx context.Context) (*model.ModelStats, error) {
	fail := func(status int, cause error) error {
		return &StatsFetchError{StatusCode: status, Message: StatsFailedMessage, Cause: cause}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats", nil)
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

	var stats model.ModelStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fail(status, fmt.Errorf("unmarshal response: %w", err))
	}

	return &stats, nil
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/folioai/chatgate/internal/errors"
)

const defaultServerURL = "http://localhost:8080"

var clientHTTP = &http.Client{Timeout: 15 * time.Second}

// serverURL returns the base URL of a running chatgate server: an explicit
// --url flag, then client.url (CHATGATE_CLIENT_URL), then the default.
func serverURL(flag string, changed bool) string {
	u := strings.TrimSpace(flag)
	if !changed {
		if fromConfig := strings.TrimSpace(viper.GetString("client.url")); fromConfig != "" {
			u = fromConfig
		}
	}
	if u == "" {
		u = defaultServerURL
	}
	return strings.TrimRight(u, "/")
}

// getJSON fetches path from the server and decodes the body into out when the
// status is one of accept. Any other status is returned as an error carrying
// the server's error code.
func getJSON(ctx context.Context, base, path string, query url.Values, out any, accept ...int) (int, error) {
	endpoint := base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := clientHTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, err
	}

	for _, code := range accept {
		if resp.StatusCode == code {
			if err := json.Unmarshal(body, out); err != nil {
				return resp.StatusCode, fmt.Errorf("decode response: %w", err)
			}
			return resp.StatusCode, nil
		}
	}

	var apiErr apperrors.HTTPErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != "" {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error
		}
		return resp.StatusCode, fmt.Errorf("%s (%d): %s", apiErr.Code, resp.StatusCode, msg)
	}
	return resp.StatusCode, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
}

package http

import (
	"io"
	"log/slog"
	"net/http"
)

// IsSuccess reports whether the response carries a 2xx status
func IsSuccess(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// IsReachable reports whether a response shows the server is up. Client
// errors count as reachable; server errors do not.
func IsReachable(resp *http.Response) bool {
	return resp.StatusCode < http.StatusInternalServerError
}

// DrainAndClose discards the rest of the body and closes it so the
// connection can be reused
func DrainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	if closeErr := resp.Body.Close(); closeErr != nil {
		slog.Error("Failed to close response body", "error", closeErr)
	}
}

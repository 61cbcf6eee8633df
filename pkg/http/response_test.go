package http

import (
	"bytes"
	"io"
	"net/http"
	"testing"
)

func TestResponseStatus(t *testing.T) {
	tests := []struct {
		statusCode int
		success    bool
		reachable  bool
	}{
		{http.StatusOK, true, true},
		{http.StatusNoContent, true, true},
		{http.StatusMovedPermanently, false, true},
		{http.StatusForbidden, false, true},
		{http.StatusNotFound, false, true},
		{http.StatusInternalServerError, false, false},
		{http.StatusServiceUnavailable, false, false},
	}

	for _, tt := range tests {
		resp := &http.Response{StatusCode: tt.statusCode}
		if got := IsSuccess(resp); got != tt.success {
			t.Errorf("IsSuccess(%d) = %v, expected %v", tt.statusCode, got, tt.success)
		}
		if got := IsReachable(resp); got != tt.reachable {
			t.Errorf("IsReachable(%d) = %v, expected %v", tt.statusCode, got, tt.reachable)
		}
	}
}

// trackingReadCloser is a custom ReadCloser to track if Close() was called
type trackingReadCloser struct {
	*bytes.Reader
	closed bool
}

func (trc *trackingReadCloser) Close() error {
	trc.closed = true
	return nil
}

func TestDrainAndClose(t *testing.T) {
	tracker := &trackingReadCloser{Reader: bytes.NewReader([]byte("leftover body"))}
	resp := &http.Response{StatusCode: http.StatusOK, Body: tracker}

	DrainAndClose(resp)

	if !tracker.closed {
		t.Error("DrainAndClose() should close the response body")
	}
	if rest, _ := io.ReadAll(tracker.Reader); len(rest) != 0 {
		t.Errorf("DrainAndClose() left %d unread bytes", len(rest))
	}

	// nil responses and bodies are ignored
	DrainAndClose(nil)
	DrainAndClose(&http.Response{})
}

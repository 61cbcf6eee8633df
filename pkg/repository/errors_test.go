package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"testing"

	"github.com/lepinkainen/pagesync/pkg/api"
	"github.com/lepinkainen/pagesync/pkg/collection"
)

func TestMapError(t *testing.T) {
	var syntaxErr *json.SyntaxError
	if err := json.Unmarshal([]byte("{]"), &struct{}{}); !errors.As(err, &syntaxErr) {
		t.Fatalf("expected json syntax error, got %v", err)
	}

	tests := []struct {
		name        string
		err         error
		wantKind    collection.ErrorKind
		wantMessage string
	}{
		{
			name:     "cancelled",
			err:      fmt.Errorf("fetch: %w", context.Canceled),
			wantKind: collection.KindCancelled,
		},
		{
			name:        "exhausted collection",
			err:         fmt.Errorf("GET: %w", &api.HTTPError{StatusCode: http.StatusForbidden}),
			wantKind:    collection.KindTransportFailure,
			wantMessage: "You have reached the end",
		},
		{
			name:        "not found is the end of the collection",
			err:         &api.HTTPError{StatusCode: http.StatusNotFound},
			wantKind:    collection.KindTransportFailure,
			wantMessage: "You have reached the end",
		},
		{
			name:        "server error",
			err:         &api.HTTPError{StatusCode: http.StatusBadGateway, Message: "Bad Gateway"},
			wantKind:    collection.KindTransportFailure,
			wantMessage: "HTTP 502: Bad Gateway",
		},
		{
			name:        "timeout",
			err:         fmt.Errorf("GET: %w", context.DeadlineExceeded),
			wantKind:    collection.KindTransportFailure,
			wantMessage: "The request timed out.",
		},
		{
			name:        "transport",
			err:         &url.Error{Op: "Get", URL: "http://x", Err: errors.New("connection refused")},
			wantKind:    collection.KindTransportFailure,
			wantMessage: "connection refused",
		},
		{
			name:     "net error",
			err:      &net.OpError{Op: "dial", Err: errors.New("no route to host")},
			wantKind: collection.KindTransportFailure,
		},
		{
			name:     "decode error",
			err:      &api.DecodeError{URL: "http://x", Err: errors.New("unexpected EOF")},
			wantKind: collection.KindInvalidData,
		},
		{
			name:     "raw json error",
			err:      syntaxErr,
			wantKind: collection.KindInvalidData,
		},
		{
			name:     "domain error passes through",
			err:      fmt.Errorf("artic: %w", collection.ErrNotFound),
			wantKind: collection.KindNotFound,
		},
		{
			name:     "anything else",
			err:      errors.New("mystery"),
			wantKind: collection.KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapError(tt.err)

			var domainErr *collection.Error
			if !errors.As(mapped, &domainErr) {
				t.Fatalf("MapError() = %T, want *collection.Error", mapped)
			}
			if domainErr.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", domainErr.Kind, tt.wantKind)
			}
			if tt.wantMessage != "" && domainErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", domainErr.Message, tt.wantMessage)
			}
		})
	}

	if MapError(nil) != nil {
		t.Error("MapError(nil) should be nil")
	}
}

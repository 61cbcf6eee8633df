package repository

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/lepinkainen/pagesync/pkg/api"
	"github.com/lepinkainen/pagesync/pkg/collection"
)

// endOfCollection is shown when the remote API refuses a page past the last one
const endOfCollection = "You have reached the end"

// MapError converts a remote API failure into a domain error
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var domainErr *collection.Error
	if errors.As(err, &domainErr) {
		return domainErr
	}

	if errors.Is(err, context.Canceled) {
		return &collection.Error{Kind: collection.KindCancelled}
	}

	var httpErr *api.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusForbidden, http.StatusNotFound, http.StatusRequestedRangeNotSatisfiable:
			return collection.TransportFailure(endOfCollection)
		default:
			return collection.TransportFailure(httpErr.Error())
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return collection.TransportFailure("The request timed out.")
	}

	var decodeErr *api.DecodeError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &decodeErr) || errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &collection.Error{Kind: collection.KindInvalidData}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return collection.TransportFailure(urlErr.Err.Error())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return collection.TransportFailure(netErr.Error())
	}

	return collection.Unknown(err.Error())
}

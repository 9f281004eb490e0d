package iofetch

import (
	"fmt"

	"github.com/gnames/cinder/pkg/errcode"
	"github.com/gnames/gn"
)

// NotFoundError is returned for 404 and 410 responses. Such errors
// are not retried.
func NotFoundError(url string, status int) error {
	msg := "Snapshot <em>%s</em> is not found (HTTP %d)"
	vars := []any{url, status}
	return &gn.Error{
		Code: errcode.FetchNotFoundError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("GET %s: HTTP %d", url, status),
	}
}

// MalformedError is returned when the server answers with something
// that cannot be a snapshot.
func MalformedError(url, reason string) error {
	msg := "Unexpected response from <em>%s</em>: %s"
	vars := []any{url, reason}
	return &gn.Error{
		Code: errcode.FetchMalformedError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("GET %s: %s", url, reason),
	}
}

// ExhaustedError is returned when all attempts failed with transient
// errors.
func ExhaustedError(url string, attempts int, err error) error {
	msg := "Cannot download <em>%s</em> after %d attempts"
	vars := []any{url, attempts}
	return &gn.Error{
		Code: errcode.FetchExhaustedError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("GET %s failed %d times: %w", url, attempts, err),
	}
}

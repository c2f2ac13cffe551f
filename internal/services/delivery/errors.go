// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package delivery

import (
	"errors"
	"fmt"
	"net/http"
)

// PermanentError marks a send failure where retrying through another
// provider cannot help: a malformed recipient or rejected credentials
// fails everywhere. The failover loop stops on the first permanent
// error instead of burning calls on the remaining providers.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err as a PermanentError.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is classified as permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// classifyHTTP converts a provider HTTP response status into a
// transient or permanent error. 408 and 429 stay transient; other 4xx
// responses (bad request, auth rejection, unprocessable recipient)
// are permanent. 5xx and anything else is transient.
func classifyHTTP(provider string, status int, body string) error {
	err := fmt.Errorf("%s: unexpected status %d: %s", provider, status, body)
	if status >= 400 && status < 500 &&
		status != http.StatusRequestTimeout && status != http.StatusTooManyRequests {
		return Permanent(err)
	}
	return err
}

package strava

import (
	"errors"
	"fmt"
	"net/http"

	"example.com/walklog/internal/domain"
)

// RemoteFetchError reports a non-2xx answer from the Strava API.
type RemoteFetchError struct {
	Op         string
	StatusCode int
}

func (e *RemoteFetchError) Error() string {
	return fmt.Sprintf("strava %s failed with status %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is lets callers match any RemoteFetchError against domain.ErrRemoteFetchFailed.
func (e *RemoteFetchError) Is(target error) bool {
	return target == domain.ErrRemoteFetchFailed
}

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var remote *RemoteFetchError
	if errors.As(err, &remote) {
		return remote.StatusCode
	}
	return 0
}

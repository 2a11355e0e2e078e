package upstream

import (
	"fmt"
	"net/http"
)

// FailureKind classifies why a pipeline call did not succeed
type FailureKind string

const (
	// KindTransport covers network errors and timeouts
	KindTransport FailureKind = "transport"
	// KindUpstream covers non-2xx responses and explicit rejections
	KindUpstream FailureKind = "upstream"
	// KindShape covers response bodies that cannot be interpreted
	KindShape FailureKind = "shape"
)

// Failure describes a failed pipeline call
type Failure struct {
	Kind       FailureKind
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

func (f *Failure) Error() string {
	switch {
	case f.Message != "":
		return f.Message
	case f.Err != nil:
		return fmt.Sprintf("%s request to %s failed: %v", f.Kind, f.Endpoint, f.Err)
	case f.StatusCode != 0:
		return fmt.Sprintf("upstream returned %d %s", f.StatusCode, http.StatusText(f.StatusCode))
	default:
		return fmt.Sprintf("%s request to %s failed", f.Kind, f.Endpoint)
	}
}

func (f *Failure) Unwrap() error {
	return f.Err
}

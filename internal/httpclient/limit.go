package httpclient

import (
	"errors"
	"fmt"
	"io"
)

// BodyLimitError reports a response body that exceeded the cap a client put
// on it. Provider and GitHub responses are bounded so a misbehaving upstream
// cannot exhaust memory.
type BodyLimitError struct {
	Limit int64
}

func (e *BodyLimitError) Error() string {
	return fmt.Sprintf("response body larger than %d byte cap", e.Limit)
}

// IsBodyLimit reports whether err came from a capped read.
func IsBodyLimit(err error) bool {
	var limitErr *BodyLimitError
	return errors.As(err, &limitErr)
}

// ReadAllWithLimit drains r up to limit bytes and fails with a BodyLimitError
// when the body is larger. A non-positive limit reads the whole body.
func ReadAllWithLimit(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, &BodyLimitError{Limit: limit}
	}
	return data, nil
}

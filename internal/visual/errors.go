package visual

import (
	"errors"
	"fmt"
)

// FrameExtractionError is returned when a video cannot be turned into
// frames. A download failure is retryable; a video that yields no usable
// frame is not.
type FrameExtractionError struct {
	VideoURL  string
	Retryable bool
	Cause     error
}

func (e *FrameExtractionError) Error() string {
	return fmt.Sprintf("visual: frame extraction failed for %s: %v", e.VideoURL, e.Cause)
}

func (e *FrameExtractionError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether err is a FrameExtractionError worth retrying.
func IsRetryable(err error) bool {
	var fe *FrameExtractionError
	return errors.As(err, &fe) && fe.Retryable
}

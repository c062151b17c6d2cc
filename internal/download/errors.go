package download

import "fmt"

// TransferError represents a transport-level failure during a transfer:
// connection errors, timeouts and non-success status codes.
type TransferError struct {
	Operation  string // The step that failed (e.g. "connect", "read_body")
	URL        string
	StatusCode int // HTTP status code, 0 for non-HTTP failures
	Err        error
}

func (e *TransferError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transfer failed during %s (HTTP %d): %s", e.Operation, e.StatusCode, e.URL)
	}

	return fmt.Sprintf("transfer failed during %s: %v", e.Operation, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// QueueError represents an invalid queue operation, such as enqueueing a
// record with missing identity fields.
type QueueError struct {
	ID     string
	Reason string
}

func (e *QueueError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("invalid queue operation: %s", e.Reason)
	}

	return fmt.Sprintf("invalid queue operation for %q: %s", e.ID, e.Reason)
}

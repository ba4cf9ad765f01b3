package store

// CorruptStateError is returned when a snapshot blob is unreadable, carries
// an unknown schema tag, or is structurally inconsistent. Recovery never
// attempts a best-effort parse of such blobs.
type CorruptStateError struct {
	Reason string
}

func (e *CorruptStateError) Error() string {
	if e.Reason != "" {
		return "corrupt snapshot: " + e.Reason
	}
	return "corrupt snapshot"
}

func (e *CorruptStateError) Is(target error) bool {
	_, ok := target.(*CorruptStateError)
	return ok
}

// ErrCorruptState matches any CorruptStateError via errors.Is.
var ErrCorruptState = &CorruptStateError{}

// NotFoundError is returned when a requested snapshot does not exist.
// Use errors.Is(err, ErrNotFound) to check for it.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "snapshot not found: " + e.RunID
	}
	return "snapshot not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// ErrNotFound matches any NotFoundError via errors.Is.
var ErrNotFound = &NotFoundError{}

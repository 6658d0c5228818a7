package resumatch

import "errors"

var (
	// ErrPipelineNotReady is returned when a search is attempted before the
	// retrieval pipeline was successfully initialized (e.g. the store was
	// unreachable at startup).
	ErrPipelineNotReady = errors.New("resumatch: retrieval pipeline not initialized")

	// ErrInvalidQuery is returned for an empty query string.
	ErrInvalidQuery = errors.New("resumatch: query must not be empty")

	// ErrInvalidMessage is returned for an empty chat message.
	ErrInvalidMessage = errors.New("resumatch: message must not be empty")

	// ErrConversationNotFound is returned when a history or delete operation
	// names an unknown conversation id.
	ErrConversationNotFound = errors.New("resumatch: conversation not found")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("resumatch: invalid configuration")
)

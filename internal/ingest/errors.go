package ingest

import "errors"

// Sentinel errors for the ingest bridge. Check with errors.Is().
var (
	// ErrNoSubscriber indicates the bridge was created without an MQTT subscriber.
	ErrNoSubscriber = errors.New("ingest: subscriber is required")

	// ErrNoEvaluator indicates the bridge was created without a rule engine.
	ErrNoEvaluator = errors.New("ingest: evaluator is required")

	// ErrBadTopic indicates a message arrived on a topic that does not match
	// the expected segment layout.
	ErrBadTopic = errors.New("ingest: malformed topic")

	// ErrBadPayload indicates a message payload could not be decoded.
	ErrBadPayload = errors.New("ingest: malformed payload")
)

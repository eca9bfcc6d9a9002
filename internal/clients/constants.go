package clients

import "time"

const (
	MAX_RETRIES     = 5
	INITIAL_BACKOFF = 1 * time.Second
	MAX_BACKOFF     = 32 * time.Second
	USER_AGENT      = "sentiscope-client/1.0 (+https://github.com/spacesedan/sentiscope)"

	// Text sent once at load time to learn a hosted model's class count.
	PROBE_TEXT = "The weather is fine today."
)

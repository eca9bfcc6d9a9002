package kafka_client

import "time"

const PRODUCER_CLIENT_ID = "sentiscope-producer"

const (
	MAX_RETRIES      = 3
	RETRY_DELAY      = 250 * time.Millisecond
	FLUSH_TIMEOUT_MS = 5000
)

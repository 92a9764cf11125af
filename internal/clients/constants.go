package clients

import "time"

const (
	MAX_RETRIES     = 5
	INITIAL_BACKOFF = 1 * time.Second
	MAX_BACKOFF     = 32 * time.Second
	REQUEST_TIMEOUT = 30 * time.Second
	USER_AGENT      = "sentipulse-bot/0.1"
)

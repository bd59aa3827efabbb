// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by the Telegram poller and outbound calls.
// The timeout must exceed the long-poll window.
var HTTPClient = &http.Client{
	Timeout: 90 * time.Second,
}

// Package httpclient builds the shared resty client used by platform
// adapters and outbound sinks.
package httpclient

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// NewRestyHTTPClient returns a resty client with the given total request
// timeout. Retries are left off; callers own their retry policy.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	return c
}

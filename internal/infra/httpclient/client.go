package httpclient

import (
	"net"
	"net/http"
	"time"
)

// New returns a client for outbound calls to third-party APIs.
func New(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext
	transport.MaxIdleConnsPerHost = 4
	return &http.Client{Timeout: timeout, Transport: transport}
}

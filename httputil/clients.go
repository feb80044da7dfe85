package httputil

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"pwb_feeds/config"
)

// MaxRedirects is how many redirects a feed request may follow
const MaxRedirects = 1

var ErrTooManyRedirects = errors.New("too many redirects")

type Clients struct {
	Feed   *http.Client // vendor APIs, one redirect max
	Health *http.Client // lightweight probes
}

func NewClients(cfg *config.HTTPConfig) *Clients {
	return &Clients{
		Feed:   NewFeedClient(cfg),
		Health: NewFeedClient(&config.HTTPConfig{ProxyURL: cfg.ProxyURL, ConnectTimeout: 5 * time.Second, ReadTimeout: 10 * time.Second}),
	}
}

// NewFeedClient builds a client with separate connect and read timeouts.
// A second redirect fails the request with ErrTooManyRedirects.
func NewFeedClient(cfg *config.HTTPConfig) *http.Client {
	connect := cfg.ConnectTimeout
	if connect <= 0 {
		connect = 10 * time.Second
	}
	read := cfg.ReadTimeout
	if read <= 0 {
		read = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = connect
	transport.ResponseHeaderTimeout = read

	if cfg.ProxyURL != "" {
		if proxyURL, err := url.Parse(cfg.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &http.Client{
		Timeout:       connect + read,
		Transport:     transport,
		CheckRedirect: LimitRedirects(MaxRedirects),
	}
}

// LimitRedirects allows up to max redirects per request
func LimitRedirects(max int) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) > max {
			return ErrTooManyRedirects
		}
		return nil
	}
}

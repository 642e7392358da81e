package linkcheck

import "time"

// DefaultUserAgent identifies the checker to remote servers.
const DefaultUserAgent = "zombielinks/1.0 (+https://github.com/lukemcguire/zombielinks)"

// Config holds checker and scheduler configuration.
type Config struct {
	Concurrency    int           // Number of concurrent workers (default 16)
	RequestTimeout time.Duration // Per-attempt timeout (default 10s)
	MaxRedirects   int           // Redirect hops followed before failing (default 10)
	UserAgent      string        // User-Agent header sent with every request
	RateLimit      int           // Initial requests per second per host, 0 disables limiting
	RespectRobots  bool          // Skip URLs disallowed by the host's robots.txt
	RetryPolicy    RetryPolicy   // Retry behavior for transient failures
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:    16,
		RequestTimeout: 10 * time.Second,
		MaxRedirects:   10,
		UserAgent:      DefaultUserAgent,
		RetryPolicy:    DefaultRetryPolicy(),
	}
}

// withDefaults fills zero values that would make a check impossible.
func (c Config) withDefaults() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.MaxRedirects < 0 {
		c.MaxRedirects = 0
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.RetryPolicy.MaxRetries < 0 {
		c.RetryPolicy.MaxRetries = 0
	}
	return c
}

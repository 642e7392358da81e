package linkcheck

import (
	"context"
	"math"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// minRateFloor is the lowest rate the limiter adapts down to, unless the
	// configured initial rate is already lower.
	minRateFloor = 5.0

	// maxRateCeiling is the highest rate in requests per second.
	maxRateCeiling = 100.0

	// emaAlpha is the weight given to a new RTT observation.
	emaAlpha = 0.2

	// recoveryFactor is the rate increase per fast RTT observation.
	recoveryFactor = 1.1

	// backoffFactor caps how far the rate drops in a single step.
	backoffFactor = 0.5

	// defaultTargetRTT is the response time the limiter steers towards.
	defaultTargetRTT = 500 * time.Millisecond
)

// AdaptiveLimiter adjusts a token bucket based on an exponential moving
// average of observed response times.
type AdaptiveLimiter struct {
	limiter   *rate.Limiter
	targetRTT time.Duration
	floor     float64
	mu        sync.RWMutex

	emaRTT      time.Duration
	currentRate float64
}

// NewAdaptiveLimiter creates a limiter starting at initialRPS requests per
// second.
func NewAdaptiveLimiter(initialRPS int, targetRTT time.Duration) *AdaptiveLimiter {
	initial := math.Max(1, math.Min(float64(initialRPS), maxRateCeiling))
	floor := math.Min(minRateFloor, initial)

	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(rate.Limit(initial), int(math.Ceil(initial))),
		targetRTT:   targetRTT,
		floor:       floor,
		currentRate: initial,
		emaRTT:      targetRTT,
	}
}

// Wait blocks until the next request is allowed or ctx is done.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// ObserveRTT records a response time and adapts the rate.
func (a *AdaptiveLimiter) ObserveRTT(rtt time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.emaRTT = time.Duration(emaAlpha*float64(rtt) + (1-emaAlpha)*float64(a.emaRTT))

	// ratio < 1 means the host is slower than the target.
	ratio := float64(a.targetRTT) / float64(a.emaRTT)

	var newRate float64
	if ratio < 1 {
		newRate = math.Max(a.currentRate*ratio, a.currentRate*backoffFactor)
	} else {
		newRate = a.currentRate * recoveryFactor
	}
	newRate = math.Max(a.floor, math.Min(newRate, maxRateCeiling))

	if math.Abs(newRate-a.currentRate) > 0.1 {
		a.currentRate = newRate
		a.limiter.SetLimit(rate.Limit(newRate))
		a.limiter.SetBurst(int(math.Ceil(newRate)))
	}
}

// CurrentRate returns the current rate in requests per second.
func (a *AdaptiveLimiter) CurrentRate() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return int(math.Round(a.currentRate))
}

// CurrentEMA returns the moving average of observed RTT values.
func (a *AdaptiveLimiter) CurrentEMA() time.Duration {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.emaRTT
}

// HostLimiter keeps one AdaptiveLimiter per host, so a slow host does not
// throttle checks against the others.
type HostLimiter struct {
	initialRPS int
	targetRTT  time.Duration

	mu    sync.Mutex
	hosts map[string]*AdaptiveLimiter
}

// NewHostLimiter creates a HostLimiter whose per-host limiters start at
// initialRPS.
func NewHostLimiter(initialRPS int, targetRTT time.Duration) *HostLimiter {
	return &HostLimiter{
		initialRPS: initialRPS,
		targetRTT:  targetRTT,
		hosts:      make(map[string]*AdaptiveLimiter),
	}
}

// For returns the limiter for host, creating it on first use.
func (h *HostLimiter) For(host string) *AdaptiveLimiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	limiter, ok := h.hosts[host]
	if !ok {
		limiter = NewAdaptiveLimiter(h.initialRPS, h.targetRTT)
		h.hosts[host] = limiter
	}
	return limiter
}

// Wait blocks until a request to rawURL's host is allowed.
func (h *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	return h.For(hostOf(rawURL)).Wait(ctx)
}

// Observe feeds a response time for rawURL's host.
func (h *HostLimiter) Observe(rawURL string, rtt time.Duration) {
	h.For(hostOf(rawURL)).ObserveRTT(rtt)
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}

package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HighValueThreshold is the amount above which the high-value backend is
// preferred when no capability match exists.
const HighValueThreshold = 1000.0

// GatewayHealth is the health record kept per registered backend
type GatewayHealth struct {
	Name                string    `json:"name"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastHealthCheckAt   time.Time `json:"last_health_check_at"`
	Healthy             bool      `json:"healthy"`
}

// RouterConfig holds failover tuning for the payment router
type RouterConfig struct {
	MaxFailures   int           // consecutive failures before the circuit opens
	ProbeInterval time.Duration // minimum time between health probes per backend
}

// DefaultRouterConfig returns the default failover configuration
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		MaxFailures:   3,
		ProbeInterval: time.Minute,
	}
}

type routerEntry struct {
	backend Backend
	caps    Capabilities

	failures  int
	lastProbe time.Time
}

// Router wraps a set of interchangeable payment backends, tracks their
// health and fails over on repeated errors. All state is per instance; no
// process-wide registry exists.
type Router struct {
	cfg      RouterConfig
	inferRef RefInferenceFunc
	logger   *logrus.Logger

	// mu guards the entries' health bookkeeping; it is never held across a
	// backend call.
	mu      sync.Mutex
	entries []*routerEntry
	byName  map[string]*routerEntry
}

// NewRouter creates a payment router. A nil inference function falls back to
// DefaultRefInference.
func NewRouter(cfg RouterConfig, inferRef RefInferenceFunc, logger *logrus.Logger) *Router {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultRouterConfig().MaxFailures
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = DefaultRouterConfig().ProbeInterval
	}
	if inferRef == nil {
		inferRef = DefaultRefInference
	}
	return &Router{
		cfg:      cfg,
		inferRef: inferRef,
		logger:   logger,
		byName:   make(map[string]*routerEntry),
	}
}

// Register adds a backend with its routing capabilities. Registration order
// is the tie-breaking order for selection.
func (r *Router) Register(backend Backend, caps Capabilities) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := &routerEntry{backend: backend, caps: caps}
	r.entries = append(r.entries, e)
	r.byName[backend.Name()] = e
}

// healthyEntries returns the entries currently passing the health gate, in
// registration order. Backends whose probe interval elapsed are re-probed
// first; a passing probe resets the failure counter, which also reopens an
// open circuit.
func (r *Router) healthyEntries(ctx context.Context, exclude string) []*routerEntry {
	now := time.Now()

	r.mu.Lock()
	var due []*routerEntry
	for _, e := range r.entries {
		if now.Sub(e.lastProbe) >= r.cfg.ProbeInterval {
			e.lastProbe = now
			due = append(due, e)
		}
	}
	r.mu.Unlock()

	for _, e := range due {
		passed := r.safeProbe(ctx, e.backend)
		r.mu.Lock()
		if passed {
			if e.failures >= r.cfg.MaxFailures {
				r.logger.WithField("gateway", e.backend.Name()).Info("Health probe passed, reopening payment gateway circuit")
			}
			e.failures = 0
		}
		r.mu.Unlock()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var healthy []*routerEntry
	for _, e := range r.entries {
		if e.backend.Name() == exclude {
			continue
		}
		if e.failures < r.cfg.MaxFailures {
			healthy = append(healthy, e)
		}
	}
	return healthy
}

// selectEntry applies the routing policy: capability match first, then the
// high-value backend for large amounts, then the first healthy backend in
// registration order.
func (r *Router) selectEntry(req *Request, candidates []*routerEntry) *routerEntry {
	for _, e := range candidates {
		if e.caps.SupportsMethod(req.Method) {
			return e
		}
	}
	if req.Amount > HighValueThreshold {
		for _, e := range candidates {
			if e.caps.HighValue {
				return e
			}
		}
	}
	return candidates[0]
}

// ProcessPayment routes a capture to the best healthy backend. A failure
// response or fault increments the backend's counter; once the counter
// reaches the threshold the circuit opens and the request is retried once
// against a different healthy backend.
func (r *Router) ProcessPayment(ctx context.Context, req *Request) *Outcome {
	candidates := r.healthyEntries(ctx, "")
	if len(candidates) == 0 {
		return Declined("no healthy payment backend available")
	}

	selected := r.selectEntry(req, candidates)
	outcome := r.captureOn(ctx, selected, req)
	if outcome.Success {
		return outcome
	}

	if !r.circuitOpen(selected) {
		return outcome
	}

	// Circuit just opened; one retry against an alternate backend.
	alternates := r.healthyEntries(ctx, selected.backend.Name())
	if len(alternates) == 0 {
		return Declined("no healthy payment backend available")
	}

	backup := r.selectEntry(req, alternates)
	r.logger.WithFields(logrus.Fields{
		"failed_gateway": selected.backend.Name(),
		"backup_gateway": backup.backend.Name(),
		"booking_id":     req.BookingID,
	}).Warn("Payment gateway circuit opened, failing over")

	return r.captureOn(ctx, backup, req)
}

// captureOn runs one capture against one backend and does the health
// bookkeeping for its result.
func (r *Router) captureOn(ctx context.Context, e *routerEntry, req *Request) *Outcome {
	outcome, err := r.safeCapture(ctx, e.backend, req)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		e.failures++
		r.logger.WithError(err).WithFields(logrus.Fields{
			"gateway":    e.backend.Name(),
			"failures":   e.failures,
			"booking_id": req.BookingID,
		}).Error("Payment backend fault")
		return Declined(fmt.Sprintf("payment backend %s unavailable", e.backend.Name()))
	}
	if !outcome.Success {
		e.failures++
		return outcome
	}

	e.failures = 0
	return outcome
}

func (r *Router) circuitOpen(e *routerEntry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return e.failures >= r.cfg.MaxFailures
}

// ProcessRefund routes a refund, preferring the backend inferred from the
// original payment reference, then iterating the remaining healthy backends
// until one succeeds or all are exhausted.
func (r *Router) ProcessRefund(ctx context.Context, req *RefundRequest) *Outcome {
	tried := ""
	if name := r.inferRef(req.OriginalReference); name != "" {
		r.mu.Lock()
		e, ok := r.byName[name]
		healthy := ok && e.failures < r.cfg.MaxFailures
		r.mu.Unlock()

		if healthy {
			if outcome := r.refundOn(ctx, e, req); outcome.Success {
				return outcome
			}
			tried = name
		}
	}

	for _, e := range r.healthyEntries(ctx, tried) {
		if outcome := r.refundOn(ctx, e, req); outcome.Success {
			return outcome
		}
	}
	return Declined("all refund attempts failed")
}

func (r *Router) refundOn(ctx context.Context, e *routerEntry, req *RefundRequest) *Outcome {
	outcome, err := r.safeRefund(ctx, e.backend, req)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		e.failures++
		r.logger.WithError(err).WithFields(logrus.Fields{
			"gateway":      e.backend.Name(),
			"original_ref": req.OriginalReference,
		}).Error("Refund backend fault")
		return Declined(fmt.Sprintf("refund backend %s unavailable", e.backend.Name()))
	}
	if !outcome.Success {
		e.failures++
		return outcome
	}

	e.failures = 0
	return outcome
}

// HealthyBackends returns the names of backends currently passing the health
// gate, in registration order. Probe intervals are honored, not forced.
func (r *Router) HealthyBackends() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var names []string
	for _, e := range r.entries {
		if e.failures < r.cfg.MaxFailures {
			names = append(names, e.backend.Name())
		}
	}
	return names
}

// Statuses returns the health record of every registered backend
func (r *Router) Statuses() map[string]GatewayHealth {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make(map[string]GatewayHealth, len(r.entries))
	for _, e := range r.entries {
		name := e.backend.Name()
		statuses[name] = GatewayHealth{
			Name:                name,
			ConsecutiveFailures: e.failures,
			LastHealthCheckAt:   e.lastProbe,
			Healthy:             e.failures < r.cfg.MaxFailures,
		}
	}
	return statuses
}

// ForceProbe clears every backend's probe timestamp so the next routing
// decision re-probes all of them. Used by the maintenance sweep to recover
// circuit-open backends promptly.
func (r *Router) ForceProbe() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		e.lastProbe = time.Time{}
	}
}

// safeCapture contains any panic escaping a backend call, converting it into
// an error so a misbehaving backend can never crash the router.
func (r *Router) safeCapture(ctx context.Context, b Backend, req *Request) (outcome *Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			outcome, err = nil, fmt.Errorf("backend %s panicked: %v", b.Name(), p)
		}
	}()
	return b.Capture(ctx, req)
}

func (r *Router) safeRefund(ctx context.Context, b Backend, req *RefundRequest) (outcome *Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			outcome, err = nil, fmt.Errorf("backend %s panicked: %v", b.Name(), p)
		}
	}()
	return b.Refund(ctx, req)
}

func (r *Router) safeProbe(ctx context.Context, b Backend) (healthy bool) {
	defer func() {
		if p := recover(); p != nil {
			healthy = false
		}
	}()
	return b.ProbeHealth(ctx)
}

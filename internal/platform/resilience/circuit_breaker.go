// internal/platform/resilience/circuit_breaker.go
package resilience

import (
	"sync"
	"time"

	"phishtrace/internal/platform/errors"
)

// State representa el estado del circuit breaker.
type State int

const (
	StateClosed   State = iota // operación normal
	StateOpen                  // rechazando llamadas sin I/O
	StateHalfOpen              // probando si el servicio se recuperó
)

// String retorna una representación legible del estado.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerSettings configura un circuit breaker.
type BreakerSettings struct {
	// FailureThreshold fallos consecutivos que abren el circuito
	FailureThreshold int

	// OpenTimeout tiempo en abierto antes de pasar a half-open
	OpenTimeout time.Duration

	// HalfOpenProbes llamadas de prueba permitidas en half-open
	HalfOpenProbes int
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 60 * time.Second
	}
	if s.HalfOpenProbes <= 0 {
		s.HalfOpenProbes = 1
	}
	return s
}

// CircuitBreaker corta las llamadas a un registro que falla repetidamente,
// para no gastar el presupuesto del run en un servicio caído.
type CircuitBreaker struct {
	mu        sync.Mutex
	settings  BreakerSettings
	state     State
	failures  int
	probes    int
	successes int
	openedAt  time.Time
	now       func() time.Time
}

// NewCircuitBreaker crea un breaker cerrado.
func NewCircuitBreaker(settings BreakerSettings) *CircuitBreaker {
	return &CircuitBreaker{
		settings: settings.withDefaults(),
		state:    StateClosed,
		now:      time.Now,
	}
}

// Allow verifica si una llamada puede pasar. En half-open solo se admiten
// HalfOpenProbes llamadas en vuelo.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.settings.OpenTimeout {
			return false
		}
		cb.state = StateHalfOpen
		cb.probes = 1
		cb.successes = 0
		return true
	case StateHalfOpen:
		if cb.probes < cb.settings.HalfOpenProbes {
			cb.probes++
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess registra una llamada exitosa.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.settings.HalfOpenProbes {
			cb.state = StateClosed
			cb.failures = 0
			cb.probes = 0
		}
	}
}

// RecordFailure registra una llamada fallida.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.settings.FailureThreshold {
			cb.trip()
		}
	case StateHalfOpen:
		cb.trip()
	}
}

// trip abre el circuito. Requiere cb.mu.
func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
	cb.failures = 0
	cb.probes = 0
	cb.successes = 0
}

// Execute ejecuta fn si el breaker lo permite. countable decide qué errores
// cuentan como fallo del servicio (ej. un 404 no lo es).
func (cb *CircuitBreaker) Execute(fn func() error, countable func(error) bool) error {
	if !cb.Allow() {
		return errors.ErrCircuitOpen
	}
	err := fn()
	if err != nil && (countable == nil || countable(err)) {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return err
}

// State retorna el estado actual.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset vuelve al estado cerrado.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
	cb.successes = 0
}

// BreakerGroup mantiene un breaker por servicio (URL base del registro).
// Un group nil o deshabilitado nunca corta llamadas.
type BreakerGroup struct {
	settings BreakerSettings
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewBreakerGroup crea un grupo con la configuración compartida.
func NewBreakerGroup(settings BreakerSettings) *BreakerGroup {
	return &BreakerGroup{
		settings: settings.withDefaults(),
		breakers: make(map[string]*CircuitBreaker),
	}
}

// For retorna el breaker de service, creándolo si hace falta.
func (g *BreakerGroup) For(service string) *CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	cb, ok := g.breakers[service]
	if !ok {
		cb = NewCircuitBreaker(g.settings)
		g.breakers[service] = cb
	}
	return cb
}

// Execute ejecuta fn a través del breaker de service.
func (g *BreakerGroup) Execute(service string, fn func() error, countable func(error) bool) error {
	if g == nil {
		return fn()
	}
	return g.For(service).Execute(fn, countable)
}

// States retorna una foto del estado de cada breaker.
func (g *BreakerGroup) States() map[string]State {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[string]State, len(g.breakers))
	for svc, cb := range g.breakers {
		out[svc] = cb.State()
	}
	return out
}

// internal/core/usecases/populator.go
package usecases

import (
	"context"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"phishtrace/internal/core/domain"
	"phishtrace/internal/core/ports"
	"phishtrace/internal/platform/logx"
)

// PopulatorConfig configura el AttributionPopulator.
type PopulatorConfig struct {
	// MaxLookups consultas de atribución en vuelo como máximo
	MaxLookups int

	Logger   logx.Logger
	Observer ports.Observer
}

// AttributionPopulator resuelve el cierre de claves distintas de un run con
// concurrencia acotada. Cada clave se resuelve una sola vez.
type AttributionPopulator struct {
	resolver   Resolver
	maxLookups int
	observer   ports.Observer
	logger     logx.Logger
}

// NewAttributionPopulator crea un populator sobre resolver.
func NewAttributionPopulator(resolver Resolver, cfg PopulatorConfig) *AttributionPopulator {
	if cfg.MaxLookups <= 0 {
		cfg.MaxLookups = 8
	}
	if cfg.Logger == nil {
		cfg.Logger = logx.NewSilent()
	}
	if cfg.Observer == nil {
		cfg.Observer = ports.NoopObserver{}
	}
	return &AttributionPopulator{
		resolver:   resolver,
		maxLookups: cfg.MaxLookups,
		observer:   cfg.Observer,
		logger:     cfg.Logger.With("component", "populator"),
	}
}

// PopulateSession acepta claves mientras la enumeración avanza y las resuelve
// en paralelo. Es segura para uso concurrente hasta que se llama a Wait.
type PopulateSession struct {
	ctx      context.Context
	p        *AttributionPopulator
	attrs    *AttributionMap
	sem      *semaphore.Weighted
	lookups  atomic.Int64
	inFlight atomic.Int64
	peak     atomic.Int64
}

// Begin abre una sesión ligada a ctx. Al vencer ctx las claves que aún esperan
// turno se etiquetan Timeout sin consultar.
func (p *AttributionPopulator) Begin(ctx context.Context) *PopulateSession {
	return &PopulateSession{
		ctx:   ctx,
		p:     p,
		attrs: NewAttributionMap(),
		sem:   semaphore.NewWeighted(int64(p.maxLookups)),
	}
}

// Submit encola key si nadie la reservó antes. No bloquea.
func (s *PopulateSession) Submit(key domain.AttributionKey) {
	if !s.attrs.Claim(key.Value) {
		return
	}

	go func() {
		s.publish(s.lookup(key))
	}()
}

// SubmitRaw normaliza raw y lo encola. Un literal que no es ni IP ni dominio
// se publica como InvalidInput bajo el literal recortado; el vacío se ignora.
func (s *PopulateSession) SubmitRaw(raw string) {
	key, err := domain.ParseAttributionKey(raw)
	if err == nil {
		s.Submit(key)
		return
	}

	literal := strings.TrimSpace(raw)
	if literal == "" || !s.attrs.Claim(literal) {
		return
	}
	s.publish(domain.FailedAttribution(
		domain.AttributionKey{Value: literal},
		"",
		domain.FailureOf(domain.KindInvalidInput, "%q is neither an ip address nor a domain", literal),
	))
}

func (s *PopulateSession) lookup(key domain.AttributionKey) *domain.AttributionRecord {
	if err := s.sem.Acquire(s.ctx, 1); err != nil {
		return domain.FailedAttribution(key, "", domain.FailureOf(domain.KindTimeout, "deadline reached before lookup started"))
	}
	defer s.sem.Release(1)

	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	s.lookups.Add(1)
	rec := s.p.resolver.Resolve(s.ctx, key)
	if rec == nil {
		rec = domain.FailedAttribution(key, "", domain.FailureOf(domain.KindTransientNetwork, "resolver returned no record"))
	}
	return rec
}

func (s *PopulateSession) publish(rec *domain.AttributionRecord) {
	if !s.attrs.Publish(rec) {
		return
	}
	s.p.observer.OnAttribution(rec)
}

// Wait espera el registro de cada clave reservada y retorna el mapa final.
// Al vencer el ctx de la sesión deja de esperar: toda clave sin registro se
// etiqueta Timeout y una publicación tardía ya no la sobrescribe.
func (s *PopulateSession) Wait() map[string]*domain.AttributionRecord {
	for _, key := range s.attrs.Keys() {
		if _, _, err := s.attrs.Await(s.ctx, key); err != nil {
			break
		}
	}

	for _, key := range s.attrs.Pending() {
		s.publish(domain.FailedAttribution(
			domain.AttributionKey{Value: key},
			"",
			domain.FailureOf(domain.KindTimeout, "lookup did not complete"),
		))
	}

	snapshot := s.attrs.Snapshot()
	s.p.logger.Debug("attribution finished",
		"keys", len(snapshot),
		"lookups", s.lookups.Load(),
		"peak_in_flight", s.peak.Load(),
	)
	return snapshot
}

// Lookups retorna cuántas resoluciones se ejecutaron.
func (s *PopulateSession) Lookups() int { return int(s.lookups.Load()) }

// PeakInFlight retorna el máximo de resoluciones simultáneas observado.
func (s *PopulateSession) PeakInFlight() int { return int(s.peak.Load()) }

// Populate resuelve todas las claves de un record ya enumerado y retorna una
// copia con el mapa de atribución completo. rec no se modifica.
func (p *AttributionPopulator) Populate(ctx context.Context, rec domain.OutputRecord) domain.OutputRecord {
	out := rec.Clone()
	session := p.Begin(ctx)
	for _, s := range out.Senders {
		session.SubmitRaw(s.IP)
	}
	for _, c := range out.Chains {
		for _, host := range c.Hosts() {
			session.SubmitRaw(host)
		}
	}
	out.Attribution = session.Wait()
	return out
}

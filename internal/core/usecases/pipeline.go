// internal/core/usecases/pipeline.go
package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"phishtrace/internal/core/domain"
	"phishtrace/internal/core/ports"
	"phishtrace/internal/platform/errors"
	"phishtrace/internal/platform/logx"
	"phishtrace/internal/platform/telemetry"
)

// PipelineOptions reúne los colaboradores y límites de un run.
type PipelineOptions struct {
	Fetcher   ports.Fetcher
	Registry  ports.RegistryClient
	Bootstrap ports.BootstrapSource

	// Table tabla de delegación ya construida; si es nil se carga de Bootstrap
	Table *domain.DelegationTable

	// Cache caché de atribución entre runs (opcional)
	Cache ports.AttributionCache

	Observer ports.Observer
	Logger   logx.Logger

	MaxDepth   int
	Workers    int
	MaxLookups int

	// Deadline límite total del run
	Deadline time.Duration
}

// Pipeline ejecuta un run completo: carga la delegación, enumera las cadenas
// y atribuye en paralelo cada clave que va apareciendo.
type Pipeline struct {
	opts   PipelineOptions
	logger logx.Logger
}

// NewPipeline crea un pipeline.
func NewPipeline(opts PipelineOptions) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = logx.NewSilent()
	}
	if opts.Observer == nil {
		opts.Observer = ports.NoopObserver{}
	}
	if opts.Deadline <= 0 {
		opts.Deadline = 120 * time.Second
	}
	return &Pipeline{
		opts:   opts,
		logger: opts.Logger.With("component", "pipeline"),
	}
}

// Run procesa una copia de in y la retorna enriquecida; in nunca se modifica.
// El record retornado nunca es nil. El error solo es distinto de nil cuando el
// deadline del run venció (errors.ErrTimeout): el record contiene entonces los
// resultados parciales y todo lo pendiente etiquetado como Timeout.
func (p *Pipeline) Run(ctx context.Context, in domain.OutputRecord) (*domain.OutputRecord, error) {
	out := in.Clone()
	if out.RunID == "" {
		out.RunID = uuid.NewString()
	}
	out.StartedAt = time.Now().UTC()
	out.Chains = nil
	out.Attribution = nil

	runCtx, cancel := context.WithTimeout(ctx, p.opts.Deadline)
	defer cancel()

	runCtx, span := telemetry.Tracer().Start(runCtx, "pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", out.RunID),
		attribute.Int("run.senders", len(out.Senders)),
		attribute.Int("run.seeds", len(out.Seeds)),
	)

	logger := p.logger.With("run", out.RunID)
	logger.Info("run started", "senders", len(out.Senders), "seeds", len(out.Seeds), "deadline", p.opts.Deadline.String())

	if err := out.Validate(); err != nil {
		logger.Warn("input record has invalid items", "error", err.Error())
		out.AddWarning("input: %v", err)
	}

	table := p.loadTable(runCtx, &out, logger)

	resolver := NewDelegationResolver(table, p.opts.Registry, p.opts.Cache, logger)
	populator := NewAttributionPopulator(resolver, PopulatorConfig{
		MaxLookups: p.opts.MaxLookups,
		Logger:     logger,
		Observer:   p.opts.Observer,
	})
	session := populator.Begin(runCtx)

	for _, s := range out.Senders {
		session.SubmitRaw(s.IP)
	}

	enumerator := NewRedirectEnumerator(p.opts.Fetcher, EnumeratorConfig{
		MaxDepth: p.opts.MaxDepth,
		Workers:  p.opts.Workers,
		Logger:   logger,
		Observer: p.opts.Observer,
	})
	out.Chains = enumerator.Enumerate(runCtx, out.Seeds, func(node *domain.FulfillmentNode) {
		// los centinelas nunca se solicitaron: su host no se atribuye
		if node.Requested && node.Host != "" {
			session.SubmitRaw(node.Host)
		}
	})
	out.Attribution = session.Wait()
	out.FinishedAt = time.Now().UTC()

	summary := out.Summary()
	span.SetAttributes(
		attribute.Int("run.chains", summary.Chains),
		attribute.Int("run.keys", summary.Keys),
		attribute.Int("run.lookups", session.Lookups()),
	)

	if err := runCtx.Err(); err != nil {
		out.AddWarning("run deadline of %s expired: unresolved items are tagged timeout", p.opts.Deadline)
		logger.Warn("run deadline expired", "chains", summary.Chains, "keys", summary.Keys, "resolved", summary.Resolved)
		return &out, errors.Mark(errors.ErrTimeout, err)
	}

	logger.Info("run completed",
		"chains", summary.Chains,
		"hops", summary.Hops,
		"keys", summary.Keys,
		"resolved", summary.Resolved,
		"lookups", session.Lookups(),
		"duration_ms", summary.Duration.Milliseconds(),
	)
	return &out, nil
}

// loadTable retorna la tabla del run. Nunca es nil: ante fallo total se usa la
// tabla no disponible y toda clave queda NoDelegation.
func (p *Pipeline) loadTable(ctx context.Context, out *domain.OutputRecord, logger logx.Logger) *domain.DelegationTable {
	if p.opts.Table != nil {
		return p.opts.Table
	}
	if p.opts.Bootstrap == nil {
		out.AddWarning("bootstrap: no delegation source configured, attribution disabled")
		return domain.UnavailableDelegationTable("none")
	}

	table, err := p.opts.Bootstrap.Load(ctx)
	if err != nil {
		logger.Warn("bootstrap degraded", "error", err.Error())
		out.AddWarning("bootstrap: %v", err)
	}
	if table == nil {
		return domain.UnavailableDelegationTable("bootstrap")
	}
	if !table.Available() {
		logger.Warn("delegation table unavailable, every key resolves to no_delegation")
	}
	return table
}

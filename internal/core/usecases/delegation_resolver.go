// internal/core/usecases/delegation_resolver.go
package usecases

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"phishtrace/internal/core/domain"
	"phishtrace/internal/core/ports"
	"phishtrace/internal/platform/logx"
	"phishtrace/internal/platform/telemetry"
	"phishtrace/internal/platform/validator"
)

// Resolver resuelve una clave a su registro de atribución. Nunca falla:
// los errores quedan etiquetados en el registro.
type Resolver interface {
	Resolve(ctx context.Context, key domain.AttributionKey) *domain.AttributionRecord
}

// DelegationResolver elige la entrada de delegación más específica para la
// clave y consulta su registro. La tabla es inmutable y compartida.
type DelegationResolver struct {
	table    *domain.DelegationTable
	registry ports.RegistryClient
	cache    ports.AttributionCache
	logger   logx.Logger
}

// NewDelegationResolver crea un resolver. cache puede ser nil.
// Una tabla nil se trata como no disponible (todo NoDelegation).
func NewDelegationResolver(table *domain.DelegationTable, registry ports.RegistryClient, cache ports.AttributionCache, logger logx.Logger) *DelegationResolver {
	if logger == nil {
		logger = logx.NewSilent()
	}
	return &DelegationResolver{
		table:    table,
		registry: registry,
		cache:    cache,
		logger:   logger.With("component", "resolver"),
	}
}

// Resolve implements Resolver
func (r *DelegationResolver) Resolve(ctx context.Context, key domain.AttributionKey) *domain.AttributionRecord {
	ctx, span := telemetry.Tracer().Start(ctx, "attribution.resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("attribution.key", key.Value),
		attribute.String("attribution.type", string(key.Type)),
	)

	rec := r.resolve(ctx, key)
	if rec.Failure != nil {
		span.SetStatus(codes.Error, rec.Failure.Error())
	}
	span.SetAttributes(attribute.Bool("attribution.cached", rec.Cached))
	return rec
}

func (r *DelegationResolver) resolve(ctx context.Context, key domain.AttributionKey) *domain.AttributionRecord {
	entry, ok := r.table.Match(key)
	if !ok {
		return domain.FailedAttribution(key, "", domain.FailureOf(domain.KindNoDelegation, "no registry delegated for %s", key.Value))
	}
	service := entry.Service()

	// La caché solo evita la consulta: sin delegación no hay atribución.
	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, key.Value); ok {
			r.logger.Debug("attribution cache hit", "key", key.Value)
			return cached
		}
	}

	queried := key
	if key.Type == domain.KeyDomain {
		queried.Value = validator.RegistrableDomain(key.Value)
	}

	if err := ctx.Err(); err != nil {
		rec := domain.FailedAttribution(key, service, domain.FailureOf(domain.KindTimeout, "deadline reached before querying %s", service))
		rec.QueriedAs = queried.Value
		return rec
	}

	reg, err := r.registry.QueryRegistry(ctx, service, queried)
	if err != nil {
		failure := domain.NewFailure(err)
		if ctx.Err() != nil {
			failure.Kind = domain.KindTimeout
		}
		r.logger.Debug("attribution failed", "key", key.Value, "registry", service, "kind", string(failure.Kind))

		rec := domain.FailedAttribution(key, service, failure)
		rec.QueriedAs = queried.Value
		return rec
	}
	if reg == nil {
		rec := domain.FailedAttribution(key, service, domain.FailureOf(domain.KindMalformedResponse, "empty registration from %s", service))
		rec.QueriedAs = queried.Value
		return rec
	}

	rec := &domain.AttributionRecord{
		Key:          key.Value,
		Type:         key.Type,
		Registry:     service,
		QueriedAs:    queried.Value,
		Registration: reg,
		ResolvedAt:   time.Now().UTC(),
	}
	if r.cache != nil {
		r.cache.Set(ctx, rec)
	}
	r.logger.Debug("attribution resolved", "key", key.Value, "registry", service, "queried_as", queried.Value)
	return rec
}

// internal/core/usecases/enumerator.go
package usecases

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"phishtrace/internal/core/domain"
	"phishtrace/internal/core/ports"
	"phishtrace/internal/platform/logx"
	"phishtrace/internal/platform/telemetry"
	"phishtrace/internal/platform/urlfilter"
	"phishtrace/internal/platform/validator"
	"phishtrace/internal/platform/workerpool"
)

// NodeFunc recibe cada nodo en cuanto se añade a su cadena. Puede invocarse
// desde varias goroutines a la vez (una por cadena).
type NodeFunc func(node *domain.FulfillmentNode)

// EnumeratorConfig configura el RedirectEnumerator.
type EnumeratorConfig struct {
	// MaxDepth máximo de saltos con petición por cadena
	MaxDepth int

	// Workers cadenas seguidas en paralelo
	Workers int

	Logger   logx.Logger
	Observer ports.Observer
}

// RedirectEnumerator sigue cada URL semilla salto a salto hasta un estado terminal.
// Las cadenas son independientes entre sí; los saltos de una cadena son secuenciales.
type RedirectEnumerator struct {
	fetcher    ports.Fetcher
	normalizer *urlfilter.Normalizer
	maxDepth   int
	workers    int
	observer   ports.Observer
	logger     logx.Logger
}

// NewRedirectEnumerator crea un enumerador sobre fetcher.
func NewRedirectEnumerator(fetcher ports.Fetcher, cfg EnumeratorConfig) *RedirectEnumerator {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 10
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = logx.NewSilent()
	}
	if cfg.Observer == nil {
		cfg.Observer = ports.NoopObserver{}
	}
	return &RedirectEnumerator{
		fetcher:    fetcher,
		normalizer: urlfilter.NewNormalizer(),
		maxDepth:   cfg.MaxDepth,
		workers:    cfg.Workers,
		observer:   cfg.Observer,
		logger:     cfg.Logger.With("component", "enumerator"),
	}
}

// Enumerate sigue todas las semillas con concurrencia acotada. chains[i]
// corresponde a seeds[i]. Una semilla que no llega a empezar antes de que
// ctx termine queda como cadena Error(Timeout) sin nodos.
func (e *RedirectEnumerator) Enumerate(ctx context.Context, seeds []domain.URLSeed, onNode NodeFunc) []*domain.Chain {
	chains := make([]*domain.Chain, len(seeds))
	if len(seeds) == 0 {
		return chains
	}

	pool := workerpool.NewWorkerPool(workerpool.Config{Workers: e.workers, Logger: e.logger})
	tasks := make([]workerpool.Task, len(seeds))
	for i, seed := range seeds {
		tasks[i] = workerpool.TaskFunc{
			Label: seed.URL,
			Fn: func(ctx context.Context) error {
				chains[i] = e.FollowChain(ctx, seed, onNode)
				if chains[i].Failure != nil {
					return chains[i].Failure
				}
				return nil
			},
		}
	}

	results := pool.Run(ctx, tasks)
	for i, res := range results {
		if chains[i] != nil {
			continue
		}
		chain := domain.NewChain(seeds[i])
		_ = chain.Terminate(domain.ChainError, domain.FailureOf(domain.KindTimeout, "chain not started: %v", res.Error))
		chains[i] = chain
		e.observer.OnChainComplete(chain)
	}

	stats := pool.Stats()
	e.logger.Debug("enumeration finished", "chains", len(chains), "failed", stats.Failed)
	return chains
}

// FollowChain recorre una semilla hasta FinalPage, Error, LoopDetected o DepthExceeded.
func (e *RedirectEnumerator) FollowChain(ctx context.Context, seed domain.URLSeed, onNode NodeFunc) *domain.Chain {
	ctx, span := telemetry.Tracer().Start(ctx, "chain.follow")
	defer span.End()
	span.SetAttributes(attribute.String("seed.url", seed.URL))

	chain := domain.NewChain(seed)
	e.observer.OnChainStarted(seed)
	defer func() {
		span.SetAttributes(
			attribute.String("chain.state", string(chain.State)),
			attribute.Int("chain.hops", chain.Hops()),
		)
		if chain.Failure != nil {
			span.SetStatus(codes.Error, chain.Failure.Error())
		}
		e.observer.OnChainComplete(chain)
	}()

	emit := func(node *domain.FulfillmentNode) *domain.FulfillmentNode {
		chain.Append(node)
		if onNode != nil {
			onNode(node)
		}
		return node
	}

	first, err := e.normalizer.Normalize(seed.URL)
	if err != nil {
		failure := domain.NewFailure(err)
		emit(&domain.FulfillmentNode{URL: seed.URL, Status: domain.NodeError, Failure: failure})
		_ = chain.Terminate(domain.ChainError, failure)
		return chain
	}

	_ = chain.Advance()
	visited := map[string]bool{first: true}
	current := seed.URL

	for {
		if chain.Hops() >= e.maxDepth {
			failure := domain.FailureOf(domain.KindDepthExceeded, "more than %d hops", e.maxDepth)
			emit(&domain.FulfillmentNode{
				URL:     current,
				Host:    hostKey(current),
				Status:  domain.NodeDepthExceeded,
				Failure: failure,
			})
			_ = chain.Terminate(domain.ChainDepthExceeded, failure)
			return chain
		}

		if err := ctx.Err(); err != nil {
			_ = chain.Terminate(domain.ChainError, domain.FailureOf(domain.KindTimeout, "deadline reached before requesting %s", current))
			return chain
		}

		result := e.fetchHop(ctx, current)
		node := &domain.FulfillmentNode{
			URL:        current,
			Host:       hostKey(current),
			Requested:  true,
			StatusCode: result.StatusCode,
			RemoteAddr: result.RemoteAddr,
			ElapsedMs:  result.Elapsed.Milliseconds(),
		}

		switch result.Outcome {
		case domain.FetchFinalPage:
			node.Status = domain.NodeFinalPage
			node.Page = result.Page
			emit(node)
			_ = chain.Terminate(domain.ChainFinalPage, nil)
			return chain

		case domain.FetchRedirect:
			node.Status = domain.NodeRedirect
			node.Location = result.Location
			node.Via = result.Via

			next, err := e.normalizer.Normalize(result.Location)
			if err != nil {
				failure := domain.FailureOf(domain.KindMalformedResponse, "redirect target: %v", err)
				node.Failure = failure
				emit(node)
				_ = chain.Terminate(domain.ChainError, failure)
				return chain
			}
			emit(node)

			if visited[next] {
				failure := domain.FailureOf(domain.KindLoopDetected, "%s already visited", result.Location)
				emit(&domain.FulfillmentNode{
					URL:     result.Location,
					Host:    hostKey(result.Location),
					Status:  domain.NodeLoopDetected,
					Failure: failure,
				})
				_ = chain.Terminate(domain.ChainLoopDetected, failure)
				return chain
			}
			visited[next] = true
			current = result.Location

		default:
			failure := domain.NewFailure(result.Err)
			if failure == nil {
				failure = domain.FailureOf(domain.KindMalformedResponse, "fetch of %s returned no outcome", current)
			}
			node.Status = domain.NodeError
			node.Failure = failure
			emit(node)
			_ = chain.Terminate(domain.ChainError, failure)
			return chain
		}
	}
}

func (e *RedirectEnumerator) fetchHop(ctx context.Context, url string) domain.FetchResult {
	ctx, span := telemetry.Tracer().Start(ctx, "hop.fetch")
	defer span.End()

	result := e.fetcher.Fetch(ctx, url)
	span.SetAttributes(
		attribute.String("hop.url", url),
		attribute.String("hop.outcome", string(result.Outcome)),
		attribute.Int("hop.status_code", result.StatusCode),
	)
	if result.Err != nil {
		span.RecordError(result.Err)
	}

	e.logger.Debug("hop fetched",
		"url", url,
		"outcome", string(result.Outcome),
		"status", result.StatusCode,
		"location", result.Location,
	)
	return result
}

// hostKey retorna la clave de atribución del host de rawURL, o "" si no parsea.
func hostKey(rawURL string) string {
	u, err := validator.ParseWebURL(rawURL)
	if err != nil {
		return ""
	}
	key, err := domain.ParseAttributionKey(u.Hostname())
	if err != nil {
		return ""
	}
	return key.Value
}

// cmd/phishtrace/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"phishtrace/internal/adapters/input"
	"phishtrace/internal/adapters/output"
	"phishtrace/internal/core/domain"
	"phishtrace/internal/core/ports"
	"phishtrace/internal/core/usecases"
	"phishtrace/internal/platform/cache"
	"phishtrace/internal/platform/config"
	"phishtrace/internal/platform/errors"
	"phishtrace/internal/platform/httpclient"
	"phishtrace/internal/platform/logx"
	"phishtrace/internal/platform/rate"
	"phishtrace/internal/platform/resilience"
	"phishtrace/internal/platform/telemetry"
	"phishtrace/internal/platform/ui"
	"phishtrace/internal/sources/rdap"
	"phishtrace/internal/sources/web"
)

var (
	// Rellenables con -ldflags en build
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// 1. Config centralizada (help/version se manejan dentro)
	cfg, err := config.Load(version, commit, date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: configuration load failed: %v\n", err)
		return 2
	}

	if !cfg.HasInput() {
		fmt.Fprintln(os.Stderr, "Error: an input record or at least one --url/--sender is required")
		fmt.Fprintln(os.Stderr, "Usage: phishtrace -i record.json | phishtrace -u <url> -s <ip>")
		fmt.Fprintln(os.Stderr, "Try: phishtrace -h for help")
		return 2
	}

	// 2. Logger compartido; con UI activa solo se muestran errores
	uiEnabled := !cfg.Output.UIDisabled
	var logger logx.Logger
	if uiEnabled {
		logger = logx.NewSilent()
	} else {
		logger = logx.NewWithLevel(logx.ParseLevel(cfg.Output.LogLevel))
	}

	// 3. Contexto con señales para un cierre limpio
	ctx, cancel := rootContextWithSignals()
	defer cancel()

	// 4. Record de entrada
	rec, err := loadInput(cfg)
	if err != nil {
		logger.Err(err, "phase", "input")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	rec.RunID = uuid.NewString()

	// 5. Trazas
	shutdownTracing, traceFile, err := initTracing(ctx, cfg)
	if err != nil {
		logger.Err(err, "phase", "telemetry")
		return 2
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("failed to flush traces", "error", err.Error())
		}
		if traceFile != nil {
			_ = traceFile.Close()
		}
	}()

	logger.Info("phishtrace starting",
		"version", version,
		"commit", commit,
		"run", rec.RunID,
		"senders", len(rec.Senders),
		"seeds", len(rec.Seeds),
		"max_depth", cfg.Core.MaxDepth,
		"max_lookups", cfg.Core.MaxLookups,
	)

	// 6. Colaboradores de red
	webClient, rdapClient, err := buildHTTPClients(cfg, logger)
	if err != nil {
		logger.Err(err, "phase", "http-client")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	var breakers *resilience.BreakerGroup
	if cfg.Resilience.CircuitBreakerEnabled {
		breakers = resilience.NewBreakerGroup(resilience.BreakerSettings{
			FailureThreshold: cfg.Resilience.CircuitBreakerThreshold,
			OpenTimeout:      cfg.Resilience.CircuitBreakerTimeout,
		})
	}

	attrCache, closeCache := buildCache(ctx, cfg, logger)
	defer closeCache()

	// 7. Presentación y stream de eventos
	var presenter ui.Presenter = ui.NewNoopPresenter()
	if uiEnabled {
		presenter = ui.NewPTermPresenter()
	}
	defer presenter.Close()

	observers := ports.Observers{presenter}
	events, eventsPath, err := output.OpenStreamingWriter(cfg.Output.Dir, rec.RunID, logger)
	if err != nil {
		logger.Warn("event stream disabled", "error", err.Error())
	} else {
		observers = append(observers, events)
		defer events.Close()
	}

	presenter.Start(ui.RunInfo{
		Seeds:      len(rec.Seeds),
		Senders:    len(rec.Senders),
		MaxDepth:   cfg.Core.MaxDepth,
		MaxLookups: cfg.Core.MaxLookups,
		Workers:    cfg.Core.Workers,
		Deadline:   cfg.Core.Deadline,
	})

	// 8. Pipeline
	pipeline := usecases.NewPipeline(usecases.PipelineOptions{
		Fetcher:  web.New(webClient, web.Options{MetaRefresh: cfg.Network.MetaRefresh}, logger),
		Registry: rdap.NewClient(rdapClient, breakers, logger),
		Bootstrap: rdap.NewBootstrapLoader(rdapClient, rdap.BootstrapConfig{
			DNS:       cfg.Bootstrap.DNS,
			IPv4:      cfg.Bootstrap.IPv4,
			IPv6:      cfg.Bootstrap.IPv6,
			Overrides: cfg.Bootstrap.Overrides,
		}, logger),
		Cache:      attrCache,
		Observer:   observers,
		Logger:     logger,
		MaxDepth:   cfg.Core.MaxDepth,
		Workers:    cfg.Core.Workers,
		MaxLookups: cfg.Core.MaxLookups,
		Deadline:   cfg.Core.Deadline,
	})

	start := time.Now()
	result, runErr := pipeline.Run(ctx, rec)
	elapsed := time.Since(start)

	if runErr != nil {
		// Un deadline vencido sigue produciendo el record parcial
		logger.Err(runErr, "phase", "run", "elapsed_ms", elapsed.Milliseconds())
	}
	for _, w := range result.Warnings {
		presenter.Warning(w)
	}

	// 9. Salidas
	if err := writeOutputs(cfg, result, uiEnabled); err != nil {
		logger.Err(err, "phase", "output")
		return 1
	}
	presenter.Finish(result)

	summary := result.Summary()
	logger.Info("phishtrace finished",
		"elapsed_ms", elapsed.Milliseconds(),
		"chains", summary.Chains,
		"keys", summary.Keys,
		"resolved", summary.Resolved,
		"warnings", len(result.Warnings),
		"events", eventsPath,
	)

	if runErr != nil {
		return 1
	}
	return 0
}

// loadInput construye el record desde --input y/o --url/--sender.
func loadInput(cfg config.Config) (domain.OutputRecord, error) {
	var rec domain.OutputRecord
	if cfg.Input.File != "" {
		var err error
		rec, err = input.ReadRecord(cfg.Input.File, os.Stdin)
		if err != nil {
			return rec, err
		}
	}
	return input.Merge(rec, cfg.Input.Senders, cfg.Input.URLs), nil
}

// buildHTTPClients crea el cliente web (sin seguir redirecciones) y el de
// registros (reintenta 429/5xx, sigue referencias entre RIRs, limitado por host).
func buildHTTPClients(cfg config.Config, logger logx.Logger) (*httpclient.Client, *httpclient.Client, error) {
	base := httpclient.Config{
		CallTimeout:  cfg.Core.CallTimeout,
		MaxRetries:   cfg.Network.Retries,
		RetryBackoff: cfg.Network.RetryBackoff,
		UserAgent:    cfg.Network.UserAgent,
		ProxyURL:     cfg.Network.ProxyURL,
		MaxBodyBytes: cfg.Network.MaxBodyBytes,
	}

	webClient, err := httpclient.New(base, logger.With("client", "web"))
	if err != nil {
		return nil, nil, err
	}

	registryCfg := base
	registryCfg.FollowRedirects = true
	registryCfg.RetryOnStatus = true
	registryCfg.Limiter = rate.NewHostLimiter(cfg.Network.RegistryRPS, 1)
	rdapClient, err := httpclient.New(registryCfg, logger.With("client", "rdap"))
	if err != nil {
		return nil, nil, err
	}
	return webClient, rdapClient, nil
}

// buildCache retorna la caché de atribución: Redis si está configurada y
// responde, memoria en otro caso.
func buildCache(ctx context.Context, cfg config.Config, logger logx.Logger) (ports.AttributionCache, func()) {
	if cfg.Cache.RedisURL != "" {
		client, err := cache.DialRedis(ctx, cfg.Cache.RedisURL)
		if err == nil {
			store := cache.NewRedisCache[*domain.AttributionRecord](client, "phishtrace:attr:")
			return cache.NewAttributionCache(store, cfg.Cache.TTL, logger), func() { _ = client.Close() }
		}
		logger.Warn("redis cache unavailable, using memory cache", "error", err.Error())
	}
	if cfg.Cache.Size <= 0 {
		return nil, func() {}
	}
	store := cache.NewMemoryCache[*domain.AttributionRecord](cfg.Cache.Size)
	return cache.NewAttributionCache(store, cfg.Cache.TTL, logger), func() {}
}

// initTracing exporta spans al archivo de trazas, o los descarta.
func initTracing(ctx context.Context, cfg config.Config) (func(context.Context) error, *os.File, error) {
	var (
		w    io.Writer
		file *os.File
	)
	if cfg.Output.TraceFile != "" {
		f, err := os.Create(cfg.Output.TraceFile)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "open trace file %s", cfg.Output.TraceFile)
		}
		w, file = f, f
	}

	shutdown, err := telemetry.Init(ctx, "phishtrace", version, w)
	if err != nil {
		if file != nil {
			_ = file.Close()
		}
		return nil, nil, err
	}
	return shutdown, file, nil
}

// writeOutputs ejecuta los exporters según la config.
// Aislado de main para añadir formatos sin tocar el flujo.
func writeOutputs(cfg config.Config, rec *domain.OutputRecord, uiEnabled bool) error {
	exporters := []ports.Exporter{&output.JSONFileExporter{Dir: cfg.Output.Dir}}
	if cfg.Output.Stdout {
		exporters = append(exporters, &output.JSONStreamExporter{Pretty: true})
	} else if !uiEnabled {
		exporters = append(exporters, &output.TableExporter{})
	}

	for _, exp := range exporters {
		if err := exp.Export(rec); err != nil {
			return fmt.Errorf("%s output: %w", exp.Name(), err)
		}
	}
	return nil
}

// rootContextWithSignals crea el contexto raíz cancelado por SIGINT/SIGTERM.
// El deadline del run lo aplica el pipeline.
func rootContextWithSignals() (context.Context, context.CancelFunc) {
	base, baseCancel := context.WithCancel(context.Background())

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-ch:
			baseCancel()
		case <-base.Done():
		}
	}()

	cleanup := func() {
		signal.Stop(ch)
		baseCancel()
	}
	return base, cleanup
}

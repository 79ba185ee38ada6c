// internal/sources/rdap/bootstrap.go
package rdap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/netip"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"phishtrace/internal/core/domain"
	"phishtrace/internal/core/ports"
	"phishtrace/internal/platform/errors"
	"phishtrace/internal/platform/httpclient"
	"phishtrace/internal/platform/logx"
)

var _ ports.BootstrapSource = (*BootstrapLoader)(nil)

// Space es un espacio de delegación del bootstrap de IANA (RFC 9224).
type Space string

const (
	SpaceDNS  Space = "dns"
	SpaceIPv4 Space = "ipv4"
	SpaceIPv6 Space = "ipv6"
)

// BootstrapConfig fuentes de cada espacio: URL http(s) o ruta de archivo.
// Una fuente vacía desactiva el espacio.
type BootstrapConfig struct {
	DNS  string
	IPv4 string
	IPv6 string

	// Overrides entradas extra; ganan sobre rangos idénticos del bootstrap
	Overrides []domain.DelegationEntry
}

// bootstrapDocument forma de dns.json / ipv4.json / ipv6.json:
// {"services": [[["range", ...], ["https://service/", ...]], ...]}
type bootstrapDocument struct {
	Version     string       `json:"version"`
	Publication string       `json:"publication"`
	Services    [][][]string `json:"services"`
}

// BootstrapLoader implementa ports.BootstrapSource.
type BootstrapLoader struct {
	http   *httpclient.Client
	config BootstrapConfig
	logger logx.Logger
}

// NewBootstrapLoader crea el loader. httpClient solo se usa para fuentes http(s).
func NewBootstrapLoader(httpClient *httpclient.Client, config BootstrapConfig, logger logx.Logger) *BootstrapLoader {
	if logger == nil {
		logger = logx.NewSilent()
	}
	return &BootstrapLoader{
		http:   httpClient,
		config: config,
		logger: logger.With("component", "bootstrap"),
	}
}

type spaceResult struct {
	entries []domain.DelegationEntry
	err     error
	loaded  bool
}

// Load carga los tres espacios de forma independiente. Un espacio que falla no
// aporta entradas y su error se incluye en el error retornado. La tabla nunca es
// nil: si ningún espacio cargó y no hay overrides es la tabla no disponible.
func (l *BootstrapLoader) Load(ctx context.Context) (*domain.DelegationTable, error) {
	spaces := []struct {
		space  Space
		source string
	}{
		{SpaceDNS, l.config.DNS},
		{SpaceIPv4, l.config.IPv4},
		{SpaceIPv6, l.config.IPv6},
	}

	var (
		mu      sync.Mutex
		results = make(map[Space]spaceResult, len(spaces))
		g       errgroup.Group
	)
	for _, sp := range spaces {
		if strings.TrimSpace(sp.source) == "" {
			continue
		}
		g.Go(func() error {
			entries, err := l.loadSpace(ctx, sp.space, sp.source)
			mu.Lock()
			results[sp.space] = spaceResult{entries: entries, err: err, loaded: err == nil}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var (
		entries []domain.DelegationEntry
		errs    []error
		sources []string
		loaded  int
	)
	for _, sp := range spaces {
		res, ok := results[sp.space]
		if !ok {
			continue
		}
		if res.err != nil {
			l.logger.Warn("bootstrap space unavailable", "space", string(sp.space), "source", sp.source, "error", res.err.Error())
			errs = append(errs, errors.Wrapf(res.err, "bootstrap %s", sp.space))
			continue
		}
		loaded++
		sources = append(sources, sp.source)
		entries = append(entries, res.entries...)
	}

	overrides := validEntries(l.config.Overrides, "", l.logger)
	if len(overrides) > 0 {
		sources = append(sources, "overrides")
	}
	entries = append(entries, overrides...)

	if loaded == 0 && len(overrides) == 0 {
		errs = append(errs, errors.Wrap(errors.ErrNoDelegation, "no bootstrap space could be loaded"))
		return domain.UnavailableDelegationTable(strings.Join(l.allSources(), ",")), errors.Join(errs...)
	}

	table, err := domain.NewDelegationTable(strings.Join(sources, ","), entries)
	if err != nil {
		errs = append(errs, err)
		return domain.UnavailableDelegationTable(strings.Join(sources, ",")), errors.Join(errs...)
	}

	ipEntries, domainEntries := table.Len()
	l.logger.Info("delegation table loaded",
		"spaces", loaded,
		"ip_entries", ipEntries,
		"domain_entries", domainEntries,
		"overrides", len(overrides),
	)
	return table, errors.Join(errs...)
}

func (l *BootstrapLoader) allSources() []string {
	var out []string
	for _, s := range []string{l.config.DNS, l.config.IPv4, l.config.IPv6} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (l *BootstrapLoader) loadSpace(ctx context.Context, space Space, source string) ([]domain.DelegationEntry, error) {
	data, err := l.read(ctx, source)
	if err != nil {
		return nil, err
	}

	var doc bootstrapDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Mark(errors.ErrInvalidResponse, errors.Wrapf(err, "decode %s", source))
	}
	if len(doc.Services) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidResponse, "%s has no services", source)
	}

	var entries []domain.DelegationEntry
	for _, service := range doc.Services {
		if len(service) < 2 || len(service[1]) == 0 {
			continue
		}
		for _, r := range service[0] {
			entries = append(entries, domain.DelegationEntry{Range: r, Services: service[1]})
		}
	}

	entries = validEntries(entries, space, l.logger)
	l.logger.Debug("bootstrap space loaded", "space", string(space), "entries", len(entries), "publication", doc.Publication)
	return entries, nil
}

func (l *BootstrapLoader) read(ctx context.Context, source string) ([]byte, error) {
	lower := strings.ToLower(source)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if l.http == nil {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "no http client for %s", source)
		}
		resp, err := l.http.Get(ctx, source, map[string]string{"Accept": "application/json"})
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, errors.Wrapf(errors.ErrInvalidResponse, "%s: HTTP %d", source, resp.StatusCode)
		}
		return resp.Body, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Mark(errors.ErrNotFound, err)
		}
		return nil, errors.Mark(errors.ErrInvalidInput, err)
	}
	return data, nil
}

// validEntries descarta entradas sin servicio o de otro espacio. Con space
// vacío (overrides) se aceptan ambos espacios.
func validEntries(entries []domain.DelegationEntry, space Space, logger logx.Logger) []domain.DelegationEntry {
	out := make([]domain.DelegationEntry, 0, len(entries))
	for _, e := range entries {
		r := strings.TrimSpace(e.Range)
		if r == "" || strings.Trim(r, ".") == "" || len(e.Services) == 0 {
			logger.Debug("skipping delegation entry", "range", e.Range)
			continue
		}

		isCIDR := strings.Contains(r, "/")
		if isCIDR {
			p, err := netip.ParsePrefix(r)
			if err != nil {
				logger.Debug("skipping invalid delegation range", "range", e.Range, "error", err.Error())
				continue
			}
			switch space {
			case SpaceIPv4:
				if !p.Addr().Unmap().Is4() {
					continue
				}
			case SpaceIPv6:
				if p.Addr().Is4() {
					continue
				}
			case SpaceDNS:
				continue
			}
		} else if space == SpaceIPv4 || space == SpaceIPv6 {
			continue
		}
		out = append(out, e)
	}
	return out
}

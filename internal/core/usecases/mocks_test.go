// internal/core/usecases/mocks_test.go
package usecases

import (
	"context"
	"sync"
	"time"

	"phishtrace/internal/core/domain"
	"phishtrace/internal/platform/errors"
	"phishtrace/internal/platform/rate"
)

// mockFetcher es un ports.Fetcher con respuestas programadas por URL.
// Una URL sin programar responde FinalPage 200.
type mockFetcher struct {
	mu      sync.Mutex
	results map[string]domain.FetchResult
	delays  map[string]time.Duration
	calls   map[string]int
	order   []string
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		results: make(map[string]domain.FetchResult),
		delays:  make(map[string]time.Duration),
		calls:   make(map[string]int),
	}
}

func (m *mockFetcher) redirect(from, to string) *mockFetcher {
	m.results[from] = domain.RedirectResult(302, to, domain.ViaLocation)
	return m
}

func (m *mockFetcher) page(url, title string) *mockFetcher {
	m.results[url] = domain.FinalPageResult(200, &domain.PageMeta{ContentType: "text/html", Title: title})
	return m
}

func (m *mockFetcher) fail(url string, err error) *mockFetcher {
	m.results[url] = domain.FetchFailed(err)
	return m
}

func (m *mockFetcher) slow(url string, d time.Duration) *mockFetcher {
	m.delays[url] = d
	return m
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) domain.FetchResult {
	m.mu.Lock()
	m.calls[url]++
	m.order = append(m.order, url)
	res, ok := m.results[url]
	delay := m.delays[url]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return domain.FetchFailed(errors.Mark(errors.ErrTimeout, ctx.Err()))
		}
	}
	if !ok {
		return domain.FinalPageResult(200, &domain.PageMeta{ContentType: "text/html"})
	}
	return res
}

func (m *mockFetcher) callsTo(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[url]
}

func (m *mockFetcher) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// registryCall registra una consulta recibida por mockRegistry.
type registryCall struct {
	Service string
	Key     domain.AttributionKey
}

// mockRegistry es un ports.RegistryClient que cuenta consultas por clave.
type mockRegistry struct {
	mu      sync.Mutex
	calls   []registryCall
	perKey  map[string]int
	errs    map[string]error
	delays  map[string]time.Duration
	delay   time.Duration
	release chan struct{}
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{
		perKey: make(map[string]int),
		errs:   make(map[string]error),
		delays: make(map[string]time.Duration),
	}
}

func (m *mockRegistry) QueryRegistry(ctx context.Context, serviceURL string, key domain.AttributionKey) (*domain.Registration, error) {
	m.mu.Lock()
	m.calls = append(m.calls, registryCall{Service: serviceURL, Key: key})
	m.perKey[key.Value]++
	err := m.errs[key.Value]
	delay := m.delay
	if d, ok := m.delays[key.Value]; ok {
		delay = d
	}
	release := m.release
	m.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, errors.Mark(errors.ErrTimeout, ctx.Err())
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, errors.Mark(errors.ErrTimeout, ctx.Err())
		}
	}
	if err != nil {
		return nil, err
	}
	return &domain.Registration{
		Handle:       "H-" + key.Value,
		Organization: "Org for " + key.Value,
		AbuseEmail:   "abuse@" + rate.HostOf(serviceURL),
	}, nil
}

func (m *mockRegistry) queries(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.perKey[key]
}

func (m *mockRegistry) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockRegistry) serviceFor(queried string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c.Key.Value == queried {
			return c.Service
		}
	}
	return ""
}

// mockBootstrap es un ports.BootstrapSource fijo.
type mockBootstrap struct {
	table *domain.DelegationTable
	err   error
	calls int
}

func (m *mockBootstrap) Load(ctx context.Context) (*domain.DelegationTable, error) {
	m.calls++
	return m.table, m.err
}

// recordingObserver cuenta eventos del run.
type recordingObserver struct {
	mu           sync.Mutex
	started      int
	completed    int
	attributions map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{attributions: make(map[string]int)}
}

func (o *recordingObserver) OnChainStarted(domain.URLSeed) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *recordingObserver) OnChainComplete(*domain.Chain) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed++
}

func (o *recordingObserver) OnAttribution(rec *domain.AttributionRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attributions[rec.Key]++
}

// scenarioTable es la tabla del escenario: 203.0.113.0/24 -> registryA, example -> registryB.
func scenarioTable() *domain.DelegationTable {
	table, err := domain.NewDelegationTable("test", []domain.DelegationEntry{
		{Range: "203.0.113.0/24", Services: []string{"https://registry-a.test/"}},
		{Range: "example", Services: []string{"https://registry-b.test/"}},
	})
	if err != nil {
		panic(err)
	}
	return table
}

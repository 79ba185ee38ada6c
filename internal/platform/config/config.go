// internal/platform/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"phishtrace/internal/core/domain"
)

// Endpoints IANA del bootstrap RDAP (RFC 9224).
const (
	DefaultBootstrapDNS  = "https://data.iana.org/rdap/dns.json"
	DefaultBootstrapIPv4 = "https://data.iana.org/rdap/ipv4.json"
	DefaultBootstrapIPv6 = "https://data.iana.org/rdap/ipv6.json"
)

type Config struct {
	// ConfigFile ruta del YAML cargado (vacío si no hubo)
	ConfigFile string `yaml:"-" json:"config_file,omitempty"`

	Core       CoreConfig       `yaml:"core" json:"core"`
	Input      InputConfig      `yaml:"input" json:"input"`
	Output     OutputConfig     `yaml:"output" json:"output"`
	Network    NetworkConfig    `yaml:"network" json:"network"`
	Bootstrap  BootstrapConfig  `yaml:"bootstrap" json:"bootstrap"`
	Resilience ResilienceConfig `yaml:"resilience" json:"resilience"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
}

type CoreConfig struct {
	CallTimeout  time.Duration `yaml:"call_timeout" json:"call_timeout"`
	MaxDepth     int           `yaml:"max_depth" json:"max_depth"`
	MaxLookups   int           `yaml:"max_lookups" json:"max_lookups"`
	Workers      int           `yaml:"workers" json:"workers"`
	Deadline     time.Duration `yaml:"deadline" json:"deadline"`
	PrintVersion bool          `yaml:"-" json:"-"`
	PrintHelp    bool          `yaml:"-" json:"-"`
}

type InputConfig struct {
	// File ruta del record JSON/YAML ("-" = stdin)
	File    string   `yaml:"file" json:"file,omitempty"`
	URLs    []string `yaml:"urls" json:"urls,omitempty"`
	Senders []string `yaml:"senders" json:"senders,omitempty"`
}

type OutputConfig struct {
	Dir        string `yaml:"dir" json:"dir"`
	UIDisabled bool   `yaml:"quiet" json:"quiet"`
	Stdout     bool   `yaml:"stdout" json:"stdout"`
	TraceFile  string `yaml:"trace_file" json:"trace_file,omitempty"`
	LogLevel   string `yaml:"log_level" json:"log_level"`
}

type NetworkConfig struct {
	Retries      int           `yaml:"retries" json:"retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff" json:"retry_backoff"`
	MaxBodyBytes int64         `yaml:"max_body" json:"max_body"`
	MetaRefresh  bool          `yaml:"meta_refresh" json:"meta_refresh"`
	RegistryRPS  float64       `yaml:"registry_rps" json:"registry_rps"`
	ProxyURL     string        `yaml:"proxy" json:"proxy,omitempty"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
}

type BootstrapConfig struct {
	DNS  string `yaml:"dns" json:"dns"`
	IPv4 string `yaml:"ipv4" json:"ipv4"`
	IPv6 string `yaml:"ipv6" json:"ipv6"`

	// Overrides entradas extra que se fusionan sobre la tabla cargada
	Overrides []domain.DelegationEntry `yaml:"overrides" json:"overrides,omitempty"`
}

type ResilienceConfig struct {
	CircuitBreakerEnabled   bool          `yaml:"circuit_breaker" json:"circuit_breaker"`
	CircuitBreakerThreshold int           `yaml:"circuit_breaker_threshold" json:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration `yaml:"circuit_breaker_timeout" json:"circuit_breaker_timeout"`
}

type CacheConfig struct {
	Size     int           `yaml:"size" json:"size"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
	RedisURL string        `yaml:"redis" json:"redis,omitempty"`
}

// DefaultConfig retorna la configuración por defecto.
func DefaultConfig() Config {
	return Config{
		Core: CoreConfig{
			CallTimeout: 10 * time.Second,
			MaxDepth:    10,
			MaxLookups:  8,
			Workers:     4,
			Deadline:    120 * time.Second,
		},
		Output: OutputConfig{
			Dir:      "phishtrace_out",
			LogLevel: "info",
		},
		Network: NetworkConfig{
			Retries:      1,
			RetryBackoff: 500 * time.Millisecond,
			MaxBodyBytes: 1 << 20,
			MetaRefresh:  true,
			RegistryRPS:  5,
			UserAgent:    "phishtrace/1.0",
		},
		Bootstrap: BootstrapConfig{
			DNS:  DefaultBootstrapDNS,
			IPv4: DefaultBootstrapIPv4,
			IPv6: DefaultBootstrapIPv6,
		},
		Resilience: ResilienceConfig{
			CircuitBreakerEnabled:   true,
			CircuitBreakerThreshold: 5,
			CircuitBreakerTimeout:   60 * time.Second,
		},
		Cache: CacheConfig{
			Size: 1000,
			TTL:  24 * time.Hour,
		},
	}
}

// Load inicializa la configuración desde os.Args y pflag.CommandLine:
// defaults -> YAML -> ENV -> FLAGS (flags tienen prioridad).
// Con --help o --version imprime y termina el proceso.
func Load(version, commit, date string) (Config, error) {
	cfg, err := LoadArgs(pflag.CommandLine, os.Args[1:])
	if err != nil {
		return cfg, err
	}
	if cfg.Core.PrintHelp {
		PrintHelp()
	}
	if cfg.Core.PrintVersion {
		PrintVersion(version, commit, date)
	}
	return cfg, nil
}

// LoadArgs aplica la misma cadena de capas sobre un FlagSet y argumentos arbitrarios.
func LoadArgs(fs *pflag.FlagSet, args []string) (Config, error) {
	cfg := DefaultConfig()

	path := configPathFromArgs(args)
	if path == "" {
		path = getenv("PHISHTRACE_CONFIG", "")
	}
	if path != "" {
		if err := loadFromFile(&cfg, path); err != nil {
			return cfg, err
		}
		cfg.ConfigFile = path
	}

	if err := loadFromEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := loadFromFlags(&cfg, fs, args); err != nil {
		return cfg, err
	}

	normalize(&cfg)
	return cfg, nil
}

// loadFromFile fusiona el YAML sobre cfg; las claves ausentes conservan su valor.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// loadFromEnv carga configuración desde variables PHISHTRACE_*.
func loadFromEnv(cfg *Config) error {
	var errs []string
	dur := func(key string, dst *time.Duration) {
		if v := getenv(key, ""); v != "" {
			d, err := parseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q", key, v))
				return
			}
			*dst = d
		}
	}

	dur("PHISHTRACE_CALL_TIMEOUT", &cfg.Core.CallTimeout)
	dur("PHISHTRACE_DEADLINE", &cfg.Core.Deadline)
	dur("PHISHTRACE_RETRY_BACKOFF", &cfg.Network.RetryBackoff)
	dur("PHISHTRACE_CACHE_TTL", &cfg.Cache.TTL)

	if v := getenv("PHISHTRACE_MAX_DEPTH", ""); v != "" {
		cfg.Core.MaxDepth = parseInt(v, cfg.Core.MaxDepth)
	}
	if v := getenv("PHISHTRACE_MAX_LOOKUPS", ""); v != "" {
		cfg.Core.MaxLookups = parseInt(v, cfg.Core.MaxLookups)
	}
	if v := getenv("PHISHTRACE_WORKERS", ""); v != "" {
		cfg.Core.Workers = parseInt(v, cfg.Core.Workers)
	}
	if v := getenv("PHISHTRACE_RETRIES", ""); v != "" {
		cfg.Network.Retries = parseInt(v, cfg.Network.Retries)
	}
	if v := getenv("PHISHTRACE_MAX_BODY", ""); v != "" {
		cfg.Network.MaxBodyBytes = int64(parseInt(v, int(cfg.Network.MaxBodyBytes)))
	}
	if v := getenv("PHISHTRACE_META_REFRESH", ""); v != "" {
		cfg.Network.MetaRefresh = parseBool(v)
	}
	if v := getenv("PHISHTRACE_REGISTRY_RPS", ""); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			cfg.Network.RegistryRPS = f
		}
	}
	if v := getenv("PHISHTRACE_PROXY_URL", ""); v != "" {
		cfg.Network.ProxyURL = v
	}
	if v := getenv("PHISHTRACE_BOOTSTRAP_DNS", ""); v != "" {
		cfg.Bootstrap.DNS = v
	}
	if v := getenv("PHISHTRACE_BOOTSTRAP_IPV4", ""); v != "" {
		cfg.Bootstrap.IPv4 = v
	}
	if v := getenv("PHISHTRACE_BOOTSTRAP_IPV6", ""); v != "" {
		cfg.Bootstrap.IPv6 = v
	}
	if v := getenv("PHISHTRACE_CB_ENABLED", ""); v != "" {
		cfg.Resilience.CircuitBreakerEnabled = parseBool(v)
	}
	if v := getenv("PHISHTRACE_CACHE_SIZE", ""); v != "" {
		cfg.Cache.Size = parseInt(v, cfg.Cache.Size)
	}
	if v := getenv("PHISHTRACE_CACHE_REDIS", ""); v != "" {
		cfg.Cache.RedisURL = v
	}
	if v := getenv("PHISHTRACE_INPUT", ""); v != "" {
		cfg.Input.File = v
	}
	if v := getenv("PHISHTRACE_OUTPUT_DIR", ""); v != "" {
		cfg.Output.Dir = v
	}
	if v := getenv("PHISHTRACE_UI_DISABLED", ""); v != "" {
		cfg.Output.UIDisabled = parseBool(v)
	}
	if v := getenv("PHISHTRACE_TRACE_FILE", ""); v != "" {
		cfg.Output.TraceFile = v
	}
	if v := getenv("PHISHTRACE_LOG_LEVEL", ""); v != "" {
		cfg.Output.LogLevel = v
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid duration in environment: %s", strings.Join(errs, ", "))
	}
	return nil
}

// loadFromFlags parsea flags de CLI. Los valores actuales de cfg son los defaults.
func loadFromFlags(cfg *Config, fs *pflag.FlagSet, args []string) error {
	var configFile string
	fs.StringVarP(&configFile, "config", "c", cfg.ConfigFile, "YAML config file")

	// Core
	fs.DurationVar(&cfg.Core.CallTimeout, "call-timeout", cfg.Core.CallTimeout, "Timeout per network call")
	fs.IntVarP(&cfg.Core.MaxDepth, "max-depth", "d", cfg.Core.MaxDepth, "Max redirect hops per chain")
	fs.IntVarP(&cfg.Core.MaxLookups, "max-lookups", "l", cfg.Core.MaxLookups, "Max concurrent registry lookups")
	fs.IntVarP(&cfg.Core.Workers, "workers", "w", cfg.Core.Workers, "Max concurrent chains")
	fs.DurationVarP(&cfg.Core.Deadline, "deadline", "T", cfg.Core.Deadline, "Deadline for the whole run")
	fs.BoolVarP(&cfg.Core.PrintVersion, "version", "v", false, "Print version and exit")
	fs.BoolVarP(&cfg.Core.PrintHelp, "help", "h", false, "Show help")

	// Input
	fs.StringVarP(&cfg.Input.File, "input", "i", cfg.Input.File, "Input record (JSON or YAML, - for stdin)")
	fs.StringArrayVarP(&cfg.Input.URLs, "url", "u", cfg.Input.URLs, "Seed URL (repeatable)")
	fs.StringArrayVarP(&cfg.Input.Senders, "sender", "s", cfg.Input.Senders, "Sender IP (repeatable)")

	// Output
	fs.StringVarP(&cfg.Output.Dir, "out", "o", cfg.Output.Dir, "Output directory")
	fs.BoolVarP(&cfg.Output.UIDisabled, "quiet", "q", cfg.Output.UIDisabled, "Disable terminal UI")
	fs.BoolVar(&cfg.Output.Stdout, "stdout", cfg.Output.Stdout, "Also print the JSON record to stdout")
	fs.StringVar(&cfg.Output.TraceFile, "trace-file", cfg.Output.TraceFile, "Write OpenTelemetry spans to file")
	fs.StringVar(&cfg.Output.LogLevel, "log-level", cfg.Output.LogLevel, "Log level (debug|info|warn|error)")

	// Network
	fs.IntVar(&cfg.Network.Retries, "retries", cfg.Network.Retries, "Retries per network call (0..1)")
	fs.DurationVar(&cfg.Network.RetryBackoff, "retry-backoff", cfg.Network.RetryBackoff, "Wait before retrying")
	fs.Int64Var(&cfg.Network.MaxBodyBytes, "max-body", cfg.Network.MaxBodyBytes, "Max bytes read per page")
	fs.BoolVar(&cfg.Network.MetaRefresh, "meta-refresh", cfg.Network.MetaRefresh, "Follow <meta http-equiv=refresh>")
	fs.Float64Var(&cfg.Network.RegistryRPS, "registry-rps", cfg.Network.RegistryRPS, "Requests per second per registry host")
	fs.StringVarP(&cfg.Network.ProxyURL, "proxy", "p", cfg.Network.ProxyURL, "HTTP(S) proxy URL")

	// Bootstrap
	fs.StringVar(&cfg.Bootstrap.DNS, "bootstrap.dns", cfg.Bootstrap.DNS, "DNS bootstrap (URL or file)")
	fs.StringVar(&cfg.Bootstrap.IPv4, "bootstrap.ipv4", cfg.Bootstrap.IPv4, "IPv4 bootstrap (URL or file)")
	fs.StringVar(&cfg.Bootstrap.IPv6, "bootstrap.ipv6", cfg.Bootstrap.IPv6, "IPv6 bootstrap (URL or file)")

	// Resilience
	fs.BoolVar(&cfg.Resilience.CircuitBreakerEnabled, "circuit-breaker", cfg.Resilience.CircuitBreakerEnabled, "Enable per-registry circuit breaker")

	// Cache
	fs.IntVar(&cfg.Cache.Size, "cache.size", cfg.Cache.Size, "In-memory attribution cache size (0 disables)")
	fs.DurationVar(&cfg.Cache.TTL, "cache.ttl", cfg.Cache.TTL, "Attribution cache TTL")
	fs.StringVar(&cfg.Cache.RedisURL, "cache.redis", cfg.Cache.RedisURL, "Redis URL for a shared attribution cache")

	fs.Usage = func() { fmt.Fprint(os.Stderr, helpText) }

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Argumentos posicionales: IPs como senders, el resto como URLs
	for _, arg := range fs.Args() {
		if isIPLiteral(arg) {
			cfg.Input.Senders = append(cfg.Input.Senders, arg)
			continue
		}
		cfg.Input.URLs = append(cfg.Input.URLs, arg)
	}
	return nil
}

func normalize(c *Config) {
	c.Core.CallTimeout = clampDuration(c.Core.CallTimeout, time.Second, 120*time.Second)
	c.Core.Deadline = clampDuration(c.Core.Deadline, time.Second, time.Hour)
	c.Core.MaxDepth = clampInt(c.Core.MaxDepth, 1, 50)
	c.Core.MaxLookups = clampInt(c.Core.MaxLookups, 1, 64)
	c.Core.Workers = clampInt(c.Core.Workers, 1, 64)

	c.Network.Retries = clampInt(c.Network.Retries, 0, 1)
	c.Network.RetryBackoff = clampDuration(c.Network.RetryBackoff, 0, 5*time.Second)
	if c.Network.MaxBodyBytes < 4<<10 {
		c.Network.MaxBodyBytes = 4 << 10
	}
	if c.Network.MaxBodyBytes > 16<<20 {
		c.Network.MaxBodyBytes = 16 << 20
	}
	if c.Network.RegistryRPS <= 0 {
		c.Network.RegistryRPS = 5
	}
	if c.Network.UserAgent == "" {
		c.Network.UserAgent = "phishtrace/1.0"
	}

	if c.Resilience.CircuitBreakerThreshold <= 0 {
		c.Resilience.CircuitBreakerThreshold = 5
	}
	if c.Resilience.CircuitBreakerTimeout <= 0 {
		c.Resilience.CircuitBreakerTimeout = 60 * time.Second
	}
	if c.Cache.Size < 0 {
		c.Cache.Size = 0
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 24 * time.Hour
	}

	if c.Output.Dir == "" {
		c.Output.Dir = "phishtrace_out"
	}
	c.Output.LogLevel = strings.ToLower(strings.TrimSpace(c.Output.LogLevel))
	if c.Output.LogLevel == "" {
		c.Output.LogLevel = "info"
	}

	c.Input.File = strings.TrimSpace(c.Input.File)
}

// HasInput indica si hay alguna fuente de entrada configurada.
func (c Config) HasInput() bool {
	return c.Input.File != "" || len(c.Input.URLs) > 0 || len(c.Input.Senders) > 0
}

// ToJSON serializa la configuración a JSON (útil para debugging).
func (c Config) ToJSON() (string, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Helpers

// configPathFromArgs busca -c/--config antes del parseo completo, para que
// el YAML quede por debajo de ENV y flags.
func configPathFromArgs(args []string) string {
	for i, arg := range args {
		switch {
		case arg == "--":
			return ""
		case arg == "-c" || arg == "--config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(arg, "--config="):
			return strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "-c="):
			return strings.TrimPrefix(arg, "-c=")
		}
	}
	return ""
}

func isIPLiteral(s string) bool {
	key, err := domain.ParseAttributionKey(s)
	return err == nil && key.Type == domain.KeyIP
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(v string, def int) int {
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return i
}

// parseDuration acepta "10s" o segundos enteros ("10").
func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampDuration(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// internal/platform/config/help.go
package config

import (
	"fmt"
	"os"
	"runtime"
)

const helpText = `
phishtrace - Phishing redirect-chain enumeration and network attribution

USAGE:
  phishtrace -i <record.json|record.yaml|-> [options]
  phishtrace -u <url> [-u <url>...] [-s <sender-ip>...] [options]
  phishtrace [options] <url|ip>...

IMPORTANT:
  Use double dash (--) for long flag names: --url, --sender, --max-depth
  Use single dash (-) for short flags: -u, -s, -d

CORE OPTIONS:
  --call-timeout duration  Timeout for each network call (default: 10s)
  -d, --max-depth int      Max redirect hops per chain (default: 10)
  -l, --max-lookups int    Max concurrent registry lookups (default: 8)
  -w, --workers int        Max chains followed concurrently (default: 4)
  -T, --deadline duration  Deadline for the whole run (default: 2m0s)
  -c, --config string      YAML config file (env: PHISHTRACE_CONFIG)

INPUT OPTIONS:
  -i, --input string       Input record, JSON or YAML ("-" reads stdin)
  -u, --url string         Seed URL, repeatable
  -s, --sender string      Sender IP address, repeatable

OUTPUT OPTIONS:
  -o, --out string         Output directory (default: "phishtrace_out")
  -q, --quiet              Disable the terminal UI (default: false)
  --stdout                 Also print the JSON record to stdout
  --trace-file string      Write OpenTelemetry spans to this file
  --log-level string       debug|info|warn|error (default: info)

NETWORK OPTIONS:
  --retries int            Retries per network call, 0 or 1 (default: 1)
  --retry-backoff duration Wait before the retry (default: 500ms)
  --max-body int           Max bytes read from a page (default: 1048576)
  --meta-refresh           Follow <meta http-equiv="refresh"> redirects (default: true)
  --registry-rps float     Requests per second per registry host (default: 5)
  -p, --proxy string       HTTP(S) proxy URL for outbound requests (optional)

REGISTRY OPTIONS:
  --bootstrap.dns string   DNS delegation bootstrap, URL or file (default: IANA)
  --bootstrap.ipv4 string  IPv4 delegation bootstrap, URL or file (default: IANA)
  --bootstrap.ipv6 string  IPv6 delegation bootstrap, URL or file (default: IANA)
  --circuit-breaker        Stop querying a failing registry for a while (default: true)
  --cache.size int         In-memory attribution cache entries, 0 disables (default: 1000)
  --cache.ttl duration     Attribution cache TTL (default: 24h0m0s)
  --cache.redis string     Redis URL for a cache shared between runs (optional)

INFO:
  -v, --version            Print version information and exit
  -h, --help               Show this help message

EXAMPLES:
  Follow a single link:
    phishtrace -u http://login-portal.example/verify

  Attribute the sending host and every hop:
    phishtrace -s 203.0.113.5 -u http://a.example/x

  Process a record produced by a mail parser:
    phishtrace -i message.json -o reports/

  Tight budget for a large message:
    phishtrace -i message.yaml -T 30s -d 5 -l 16

ENVIRONMENT VARIABLES:
  Most flags can be set via environment variables with PHISHTRACE_ prefix:

  PHISHTRACE_CALL_TIMEOUT=10s       Per-call timeout
  PHISHTRACE_MAX_DEPTH=10           Max redirect depth
  PHISHTRACE_MAX_LOOKUPS=8          Max concurrent lookups
  PHISHTRACE_DEADLINE=120s          Run deadline
  PHISHTRACE_OUTPUT_DIR=/path       Output directory
  PHISHTRACE_PROXY_URL=http://...   Proxy URL
  PHISHTRACE_CACHE_REDIS=redis://.. Shared cache
  PHISHTRACE_LOG_LEVEL=debug        Log level

  Note: CLI flags override environment variables, which override the config file.

OUTPUT:
  phishtrace writes the completed record as JSON to <out>/phishtrace_<run-id>.json:
  - one redirect chain per seed URL, with every hop and its terminal state
  - one attribution entry per distinct host or sender IP
  - run warnings (degraded bootstrap, deadline expiry)
  A summary table is printed to stdout (unless --quiet).
`

// PrintHelp prints the custom help message and exits.
func PrintHelp() {
	fmt.Fprint(os.Stdout, helpText)
	os.Exit(0)
}

// PrintVersion prints version information and exits.
func PrintVersion(version, commit, date string) {
	fmt.Printf("phishtrace %s\n", version)
	fmt.Printf("  Commit:  %s\n", commit)
	fmt.Printf("  Built:   %s\n", date)
	fmt.Printf("  Go:      %s\n", runtime.Version())
	os.Exit(0)
}

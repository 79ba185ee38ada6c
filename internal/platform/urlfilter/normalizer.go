// Package urlfilter canonicalizes URLs so that redirect chains can be compared
// hop by hop. Two URLs that normalize to the same string are treated as the same
// visit by the redirect enumerator.
package urlfilter

import (
	"net"
	"net/url"
	"path"
	"sort"
	"strings"

	"phishtrace/internal/platform/errors"
	"phishtrace/internal/platform/validator"
)

// Normalizer normalizes URLs to canonical forms for visited-set membership.
type Normalizer struct {
	// ignoredParams are dropped before comparison (tracking, cache busters)
	ignoredParams map[string]bool
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithTrackingParamsIgnored drops common analytics and cache-buster parameters
// so that A?utm_source=x and A?utm_source=y are treated as one visit.
func WithTrackingParamsIgnored() Option {
	return func(n *Normalizer) {
		n.ignoredParams = map[string]bool{
			// Google Analytics
			"utm_source": true, "utm_medium": true, "utm_campaign": true,
			"utm_term": true, "utm_content": true, "gclid": true,
			"_ga": true, "_gid": true,

			// Facebook
			"fbclid": true, "fb_source": true, "fb_ref": true,

			// Cache busters
			"_": true, "nocache": true, "cachebuster": true,
		}
	}
}

// NewNormalizer creates a URL normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{ignoredParams: map[string]bool{}}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize returns the canonical form of an absolute http(s) URL.
// Only RFC 3986 equivalences are applied: /r%2Fx and /r/x stay distinct, and so
// do ?a=1&a=2 and ?a=2&a=1.
func (n *Normalizer) Normalize(rawURL string) (string, error) {
	parsed, err := validator.ParseWebURL(rawURL)
	if err != nil {
		return "", err
	}

	scheme := strings.ToLower(parsed.Scheme)
	host, err := n.normalizeHost(scheme, parsed)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(cleanPath(normalizeEscapes(parsed.EscapedPath())))
	if query := n.normalizeQuery(parsed.RawQuery); query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}
	return b.String(), nil
}

func (n *Normalizer) normalizeHost(scheme string, parsed *url.URL) (string, error) {
	hostname := parsed.Hostname()
	port := parsed.Port()

	var host string
	if addr, err := validator.NormalizeIP(hostname); err == nil {
		host = addr.String()
		if addr.Is6() {
			host = "[" + host + "]"
		}
	} else {
		h, err := validator.NormalizeHost(hostname)
		if err != nil {
			return "", errors.Wrapf(err, "normalize host of %s", parsed.Redacted())
		}
		host = h
	}

	// Remove default ports
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		return net.JoinHostPort(strings.Trim(host, "[]"), port), nil
	}
	return host, nil
}

// cleanPath resolves dot segments and duplicate slashes on the escaped path, so
// an encoded %2F never becomes a separator. The trailing slash is kept.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	cleaned := path.Clean(p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}

// normalizeQuery sorts parameters by key. The values of a repeated key keep
// their original order: servers read ?a=1&a=2 and ?a=2&a=1 differently.
func (n *Normalizer) normalizeQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	type param struct{ key, pair string }
	var params []param
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		rawKey, rawValue, hasValue := strings.Cut(part, "=")
		key := normalizeEscapes(rawKey)
		if decoded, err := url.QueryUnescape(rawKey); err == nil && n.ignoredParams[strings.ToLower(decoded)] {
			continue
		}
		pair := key
		if hasValue {
			pair += "=" + normalizeEscapes(rawValue)
		}
		params = append(params, param{key: key, pair: pair})
	}

	sort.SliceStable(params, func(i, j int) bool { return params[i].key < params[j].key })

	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.pair
	}
	return strings.Join(parts, "&")
}

// normalizeEscapes decodes percent-encoded unreserved characters and uppercases
// the hex digits of every other escape. Reserved characters stay encoded.
func normalizeEscapes(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '%' || i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
			b.WriteByte(s[i])
			continue
		}
		c := unhex(s[i+1])<<4 | unhex(s[i+2])
		if isUnreserved(c) {
			b.WriteByte(c)
		} else {
			b.WriteByte('%')
			b.WriteString(strings.ToUpper(s[i+1 : i+3]))
		}
		i += 2
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return c == '-' || c == '.' || c == '_' || c == '~'
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

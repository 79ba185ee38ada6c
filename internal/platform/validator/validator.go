// internal/platform/validator/validator.go
package validator

import (
	"net/netip"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"phishtrace/internal/platform/errors"
)

var (
	domainRegex = regexp.MustCompile(`^([a-z0-9_]([a-z0-9\-_]{0,61}[a-z0-9])?\.)*[a-z0-9]([a-z0-9\-]{0,61}[a-z0-9])?$`)

	// Perfil de lookup IDNA: mapea mayúsculas y valida etiquetas.
	hostProfile = idna.New(
		idna.MapForLookup(),
		idna.Transitional(false),
		idna.StrictDomainName(false),
	)
)

// Domain validators

// IsDomain verifica si un string ya normalizado es un dominio válido.
func IsDomain(domain string) bool {
	if len(domain) == 0 || len(domain) > 253 {
		return false
	}
	if !domainRegex.MatchString(domain) {
		return false
	}
	// Verificar que no sea una IP
	_, err := netip.ParseAddr(domain)
	return err != nil
}

// NormalizeHost lleva un hostname a su forma canónica A-label:
// minúsculas, sin punto final, IDN convertido a punycode.
func NormalizeHost(host string) (string, error) {
	host = strings.TrimSpace(host)
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "empty host")
	}

	ascii, err := hostProfile.ToASCII(host)
	if err != nil {
		return "", errors.Mark(errors.ErrInvalidInput, err)
	}
	ascii = strings.ToLower(ascii)

	if !IsDomain(ascii) {
		return "", errors.Wrapf(errors.ErrInvalidInput, "invalid host %q", host)
	}
	return ascii, nil
}

// RegistrableDomain retorna el eTLD+1 del host; si no se puede calcular
// (ej. el host ya es un sufijo público) retorna el host tal cual.
func RegistrableDomain(host string) string {
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil || etld1 == "" {
		return host
	}
	return etld1
}

// Network validators

// IsIP verifica si un string es una dirección IP válida (v4 o v6).
func IsIP(ip string) bool {
	_, err := netip.ParseAddr(strings.TrimSpace(ip))
	return err == nil
}

// NormalizeIP normaliza una IP a su forma canónica.
// Las direcciones IPv4-mapped se reducen a IPv4 y se descarta la zona.
func NormalizeIP(ip string) (netip.Addr, error) {
	raw := strings.Trim(strings.TrimSpace(ip), "[]")
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Addr{}, errors.Mark(errors.ErrInvalidInput, err)
	}
	return addr.Unmap().WithZone(""), nil
}

// URL validators

// ParseWebURL acepta solo URLs absolutas http/https con host.
func ParseWebURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "empty url")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Mark(errors.ErrInvalidInput, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "url %q has no host", raw)
	}
	return parsed, nil
}

// IsURL verifica si un string es una URL web válida.
func IsURL(raw string) bool {
	_, err := ParseWebURL(raw)
	return err == nil
}

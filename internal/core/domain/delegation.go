// internal/core/domain/delegation.go
package domain

import (
	"fmt"
	"net/netip"
	"sort"
	"strings"
)

// DelegationEntry mapea un rango (CIDR o sufijo de dominio) a los servicios
// de registro autoritativos para él.
type DelegationEntry struct {
	// Range CIDR ("203.0.113.0/24") o sufijo de dominio ("example", "co.uk")
	Range string `json:"range" yaml:"range"`

	// Services URLs base de servicio, en orden de preferencia
	Services []string `json:"services" yaml:"services"`
}

// Service retorna la URL preferida: la primera https, o la primera disponible.
func (e DelegationEntry) Service() string {
	for _, s := range e.Services {
		if strings.HasPrefix(strings.ToLower(s), "https://") {
			return s
		}
	}
	if len(e.Services) > 0 {
		return e.Services[0]
	}
	return ""
}

type prefixEntry struct {
	prefix netip.Prefix
	entry  DelegationEntry
}

// DelegationTable es la tabla de delegación inmutable de un run. Se construye
// una vez y se comparte por referencia entre todos los lookups concurrentes;
// no expone ningún método de escritura.
type DelegationTable struct {
	prefixes  []prefixEntry              // ordenados por longitud de prefijo descendente
	suffixes  map[string]DelegationEntry // sufijo normalizado -> entrada
	available bool
	source    string
}

// NewDelegationTable construye la tabla. Rangos con forma de CIDR van al espacio IP;
// el resto al espacio de dominios. Ante rangos duplicados gana la última entrada.
func NewDelegationTable(source string, entries []DelegationEntry) (*DelegationTable, error) {
	t := &DelegationTable{
		suffixes:  make(map[string]DelegationEntry),
		available: true,
		source:    source,
	}

	byPrefix := make(map[netip.Prefix]int)
	for _, e := range entries {
		if len(e.Services) == 0 {
			return nil, fmt.Errorf("delegation %q has no services", e.Range)
		}
		raw := strings.TrimSpace(e.Range)

		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("delegation range %q: %w", e.Range, err)
			}
			p = netip.PrefixFrom(p.Addr().Unmap(), unmappedBits(p)).Masked()
			if i, dup := byPrefix[p]; dup {
				t.prefixes[i].entry = e
				continue
			}
			byPrefix[p] = len(t.prefixes)
			t.prefixes = append(t.prefixes, prefixEntry{prefix: p, entry: e})
			continue
		}

		suffix := normalizeSuffix(raw)
		if suffix == "" {
			return nil, fmt.Errorf("delegation range %q is empty", e.Range)
		}
		t.suffixes[suffix] = e
	}

	sort.SliceStable(t.prefixes, func(i, j int) bool {
		return t.prefixes[i].prefix.Bits() > t.prefixes[j].prefix.Bits()
	})
	return t, nil
}

// UnavailableDelegationTable es la tabla fail-closed: todo lookup retorna NoDelegation.
func UnavailableDelegationTable(source string) *DelegationTable {
	return &DelegationTable{
		suffixes: map[string]DelegationEntry{},
		source:   source,
	}
}

// Match selecciona la entrada más específica para la clave: prefijo más largo
// para IPs, sufijo más largo para dominios. Los dos espacios son independientes.
func (t *DelegationTable) Match(key AttributionKey) (DelegationEntry, bool) {
	if t == nil || !t.available {
		return DelegationEntry{}, false
	}

	switch key.Type {
	case KeyIP:
		addr, err := netip.ParseAddr(key.Value)
		if err != nil {
			return DelegationEntry{}, false
		}
		addr = addr.Unmap()
		for _, p := range t.prefixes {
			if p.prefix.Contains(addr) {
				return p.entry, true
			}
		}
	case KeyDomain:
		name := normalizeSuffix(key.Value)
		for name != "" {
			if e, ok := t.suffixes[name]; ok {
				return e, true
			}
			i := strings.IndexByte(name, '.')
			if i < 0 {
				break
			}
			name = name[i+1:]
		}
	}
	return DelegationEntry{}, false
}

// Available indica si la tabla se cargó (false = fail closed).
func (t *DelegationTable) Available() bool { return t != nil && t.available }

// Len retorna el número de entradas IP y de dominio.
func (t *DelegationTable) Len() (ipEntries, domainEntries int) {
	if t == nil {
		return 0, 0
	}
	return len(t.prefixes), len(t.suffixes)
}

// Source describe de dónde se cargó la tabla.
func (t *DelegationTable) Source() string { return t.source }

func normalizeSuffix(s string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(s)), ".")
}

// unmappedBits ajusta la longitud de un prefijo ::ffff:a.b.c.d/n a su forma IPv4.
func unmappedBits(p netip.Prefix) int {
	if p.Addr().Is4In6() {
		bits := p.Bits() - 96
		if bits < 0 {
			return 0
		}
		return bits
	}
	return p.Bits()
}

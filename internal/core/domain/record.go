// internal/core/domain/record.go
package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"phishtrace/internal/platform/errors"
	"phishtrace/internal/platform/validator"
)

// OutputRecord es el agregado raíz que cruza todas las etapas de un run.
// El pipeline trabaja sobre una copia (Clone) y nunca muta el original del llamador.
type OutputRecord struct {
	// RunID identificador único del run
	RunID string `json:"run_id,omitempty" yaml:"run_id,omitempty"`

	// Senders direcciones de envío extraídas de las cabeceras (ordenadas)
	Senders []SenderAddress `json:"senders" yaml:"senders"`

	// Seeds URLs candidatas extraídas del mensaje
	Seeds []URLSeed `json:"urls" yaml:"urls"`

	// Chains una cadena de fulfillment nodes por seed, en el orden de Seeds
	Chains []*Chain `json:"chains,omitempty" yaml:"-"`

	// Attribution mapa clave normalizada -> registro de atribución
	Attribution map[string]*AttributionRecord `json:"attribution,omitempty" yaml:"-"`

	// Warnings advertencias no críticas del run (bootstrap degradado, deadline)
	Warnings []string `json:"warnings,omitempty" yaml:"-"`

	// StartedAt / FinishedAt marcas de tiempo del run
	StartedAt  time.Time `json:"started_at" yaml:"-"`
	FinishedAt time.Time `json:"finished_at" yaml:"-"`
}

// SenderAddress es una IP de envío junto con la cabecera de donde se extrajo.
// Identidad = el literal IP.
type SenderAddress struct {
	IP     string `json:"ip" yaml:"ip"`
	Header string `json:"header,omitempty" yaml:"header,omitempty"`
}

// URLSeed es una URL inicial y su posición en el mensaje fuente.
type URLSeed struct {
	URL      string `json:"url" yaml:"url"`
	Position string `json:"position,omitempty" yaml:"position,omitempty"`
}

// NewOutputRecord construye un record a partir de literales sueltos.
func NewOutputRecord(senders, urls []string) OutputRecord {
	rec := OutputRecord{
		Senders: make([]SenderAddress, 0, len(senders)),
		Seeds:   make([]URLSeed, 0, len(urls)),
	}
	for _, s := range senders {
		rec.Senders = append(rec.Senders, SenderAddress{IP: s})
	}
	for i, u := range urls {
		rec.Seeds = append(rec.Seeds, URLSeed{URL: u, Position: fmt.Sprintf("arg[%d]", i)})
	}
	return rec
}

// Clone retorna una copia profunda; el original queda intacto ante cualquier fallo posterior.
func (r OutputRecord) Clone() OutputRecord {
	out := OutputRecord{
		RunID:      r.RunID,
		Senders:    append([]SenderAddress(nil), r.Senders...),
		Seeds:      append([]URLSeed(nil), r.Seeds...),
		Warnings:   append([]string(nil), r.Warnings...),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	if r.Chains != nil {
		out.Chains = make([]*Chain, len(r.Chains))
		for i, c := range r.Chains {
			out.Chains[i] = c.Clone()
		}
	}
	if r.Attribution != nil {
		out.Attribution = make(map[string]*AttributionRecord, len(r.Attribution))
		for k, rec := range r.Attribution {
			out.Attribution[k] = rec.Clone()
		}
	}
	return out
}

// Validate reporta cada elemento malformado. Un record inválido sigue siendo
// procesable: los elementos inválidos quedan etiquetados como InvalidInput.
func (r OutputRecord) Validate() error {
	var errs []error
	for i, s := range r.Senders {
		if _, err := validator.NormalizeIP(s.IP); err != nil {
			errs = append(errs, fmt.Errorf("senders[%d] %q: %w", i, s.IP, err))
		}
	}
	for i, s := range r.Seeds {
		if _, err := validator.ParseWebURL(s.URL); err != nil {
			errs = append(errs, fmt.Errorf("urls[%d] %q: %w", i, s.URL, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Mark(ErrInvalidRecord, errors.Join(errs...))
}

// AddWarning agrega una advertencia al record.
func (r *OutputRecord) AddWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Lookup busca el registro de atribución de un host o IP sin normalizar.
func (r OutputRecord) Lookup(raw string) (*AttributionRecord, bool) {
	key, err := ParseAttributionKey(raw)
	if err != nil {
		rec, ok := r.Attribution[strings.TrimSpace(raw)]
		return rec, ok
	}
	rec, ok := r.Attribution[key.Value]
	return rec, ok
}

// AttributionKeys retorna el cierre de claves distintas (senders ∪ hosts de nodos)
// en orden estable: primero senders, luego hosts por cadena y salto.
func (r OutputRecord) AttributionKeys() []string {
	seen := make(map[string]bool)
	var keys []string
	add := func(raw string) {
		k := KeyString(raw)
		if k == "" || seen[k] {
			return
		}
		seen[k] = true
		keys = append(keys, k)
	}
	for _, s := range r.Senders {
		add(s.IP)
	}
	for _, c := range r.Chains {
		for _, host := range c.Hosts() {
			add(host)
		}
	}
	return keys
}

// RecordSummary resume un record para presentación.
type RecordSummary struct {
	Chains         int
	ChainsByState  map[ChainState]int
	Hops           int
	Keys           int
	Resolved       int
	FailuresByKind map[ErrorKind]int
	Warnings       int
	Duration       time.Duration
}

// Summary calcula estadísticas del record.
func (r OutputRecord) Summary() RecordSummary {
	s := RecordSummary{
		Chains:         len(r.Chains),
		ChainsByState:  make(map[ChainState]int),
		Keys:           len(r.Attribution),
		FailuresByKind: make(map[ErrorKind]int),
		Warnings:       len(r.Warnings),
	}
	for _, c := range r.Chains {
		s.ChainsByState[c.State]++
		s.Hops += c.Hops()
	}
	for _, rec := range r.Attribution {
		if rec.OK() {
			s.Resolved++
		} else if rec.Failure != nil {
			s.FailuresByKind[rec.Failure.Kind]++
		}
	}
	if !r.FinishedAt.IsZero() && !r.StartedAt.IsZero() {
		s.Duration = r.FinishedAt.Sub(r.StartedAt)
	}
	return s
}

// SortedAttributionKeys retorna las claves del mapa ordenadas.
func (r OutputRecord) SortedAttributionKeys() []string {
	keys := make([]string, 0, len(r.Attribution))
	for k := range r.Attribution {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Los colaboradores de parsing de correo a veces emiten literales sueltos en
// lugar de objetos; ambos formatos se aceptan.

// UnmarshalJSON acepta "203.0.113.5" o {"ip": "...", "header": "..."}.
func (s *SenderAddress) UnmarshalJSON(data []byte) error {
	var literal string
	if err := json.Unmarshal(data, &literal); err == nil {
		*s = SenderAddress{IP: literal}
		return nil
	}
	type plain SenderAddress
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("sender: cannot unmarshal %s: %w", string(data), err)
	}
	*s = SenderAddress(p)
	return nil
}

// UnmarshalYAML acepta un escalar o un mapa.
func (s *SenderAddress) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*s = SenderAddress{IP: value.Value}
		return nil
	}
	type plain SenderAddress
	var p plain
	if err := value.Decode(&p); err != nil {
		return fmt.Errorf("sender: %w", err)
	}
	*s = SenderAddress(p)
	return nil
}

// UnmarshalJSON acepta "http://..." o {"url": "...", "position": "..."}.
func (u *URLSeed) UnmarshalJSON(data []byte) error {
	var literal string
	if err := json.Unmarshal(data, &literal); err == nil {
		*u = URLSeed{URL: literal}
		return nil
	}
	type plain URLSeed
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("url seed: cannot unmarshal %s: %w", string(data), err)
	}
	*u = URLSeed(p)
	return nil
}

// UnmarshalYAML acepta un escalar o un mapa.
func (u *URLSeed) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*u = URLSeed{URL: value.Value}
		return nil
	}
	type plain URLSeed
	var p plain
	if err := value.Decode(&p); err != nil {
		return fmt.Errorf("url seed: %w", err)
	}
	*u = URLSeed(p)
	return nil
}

// internal/core/domain/attribution.go
package domain

import (
	"strings"
	"time"

	"phishtrace/internal/platform/errors"
	"phishtrace/internal/platform/validator"
)

// KeyType separa los dos espacios de lookup independientes.
type KeyType string

const (
	KeyIP     KeyType = "ip"
	KeyDomain KeyType = "domain"
)

// AttributionKey es un host o dirección normalizado.
type AttributionKey struct {
	Value string
	Type  KeyType
}

func (k AttributionKey) String() string { return k.Value }

// ParseAttributionKey normaliza un literal IP o un hostname.
func ParseAttributionKey(raw string) (AttributionKey, error) {
	if addr, err := validator.NormalizeIP(raw); err == nil {
		return AttributionKey{Value: addr.String(), Type: KeyIP}, nil
	}
	host, err := validator.NormalizeHost(raw)
	if err != nil {
		return AttributionKey{}, errors.Mark(ErrUnknownKey, err)
	}
	return AttributionKey{Value: host, Type: KeyDomain}, nil
}

// KeyString retorna la clave normalizada de raw, o el literal recortado
// cuando raw no es normalizable (se etiqueta como InvalidInput, nunca se descarta).
func KeyString(raw string) string {
	if key, err := ParseAttributionKey(raw); err == nil {
		return key.Value
	}
	return strings.TrimSpace(raw)
}

// Registration es la respuesta resuelta de un registro (organización, abuse, rango).
type Registration struct {
	Handle        string   `json:"handle,omitempty"`
	Name          string   `json:"name,omitempty"`
	Organization  string   `json:"organization,omitempty"`
	AbuseEmail    string   `json:"abuse_email,omitempty"`
	AbusePhone    string   `json:"abuse_phone,omitempty"`
	Country       string   `json:"country,omitempty"`
	Range         string   `json:"range,omitempty"`
	Registrar     string   `json:"registrar,omitempty"`
	Status        []string `json:"status,omitempty"`
	RegisteredAt  string   `json:"registered_at,omitempty"`
	LastChangedAt string   `json:"last_changed_at,omitempty"`
}

// AttributionRecord es el registro write-once de una clave.
type AttributionRecord struct {
	// Key clave normalizada
	Key string `json:"key"`

	// Type espacio de lookup (ip/domain); vacío si la clave es inválida
	Type KeyType `json:"type,omitempty"`

	// Registry URL del servicio autoritativo consultado
	Registry string `json:"registry,omitempty"`

	// QueriedAs nombre enviado al registro (eTLD+1 para dominios)
	QueriedAs string `json:"queried_as,omitempty"`

	// Registration resultado exitoso
	Registration *Registration `json:"registration,omitempty"`

	// Failure etiqueta de error
	Failure *Failure `json:"error,omitempty"`

	// Cached indica que el resultado vino de la caché entre runs
	Cached bool `json:"cached,omitempty"`

	ResolvedAt time.Time `json:"resolved_at"`
}

// OK indica si la atribución se resolvió.
func (r *AttributionRecord) OK() bool {
	return r != nil && r.Failure == nil && r.Registration != nil
}

// FailedAttribution construye un registro etiquetado con error.
func FailedAttribution(key AttributionKey, registry string, failure *Failure) *AttributionRecord {
	return &AttributionRecord{
		Key:        key.Value,
		Type:       key.Type,
		Registry:   registry,
		Failure:    failure,
		ResolvedAt: time.Now().UTC(),
	}
}

// Clone copia profunda del registro.
func (r *AttributionRecord) Clone() *AttributionRecord {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Registration != nil {
		reg := *r.Registration
		reg.Status = append([]string(nil), r.Registration.Status...)
		cp.Registration = &reg
	}
	if r.Failure != nil {
		f := *r.Failure
		cp.Failure = &f
	}
	return &cp
}

// internal/sources/rdap/response.go
package rdap

import (
	"encoding/json"
	"fmt"
	"strings"

	"phishtrace/internal/core/domain"
	"phishtrace/internal/platform/errors"
)

// rdapResponse representa un objeto RDAP "ip network" o "domain" (simplificado)
type rdapResponse struct {
	ObjectClassName string   `json:"objectClassName"`
	Handle          string   `json:"handle"`
	Name            string   `json:"name"`
	LDHName         string   `json:"ldhName"`
	Country         string   `json:"country"`
	Status          []string `json:"status"`

	// IP network
	StartAddress string     `json:"startAddress"`
	EndAddress   string     `json:"endAddress"`
	Cidrs        []rdapCidr `json:"cidr0_cidrs"`

	// Entities (registrante, registrar, abuse)
	Entities []rdapEntity `json:"entities"`

	// Events (registration, last changed)
	Events []rdapEvent `json:"events"`

	// Error responses
	ErrorCode int `json:"errorCode"`
}

type rdapCidr struct {
	V4Prefix string `json:"v4prefix"`
	V6Prefix string `json:"v6prefix"`
	Length   int    `json:"length"`
}

// rdapEntity representa una entidad (registrar, contacto)
type rdapEntity struct {
	Handle     string       `json:"handle"`
	Roles      []string     `json:"roles"`
	VCardArray []any        `json:"vcardArray"`
	Entities   []rdapEntity `json:"entities"`
}

// rdapEvent representa un evento (registration, last changed)
type rdapEvent struct {
	EventAction string `json:"eventAction"`
	EventDate   string `json:"eventDate"`
}

// Frases completas que los registros usan para ocultar datos. Se comparan
// contra el valor entero: "abuse@withheldforprivacy.com" es un valor real.
var redactedValues = map[string]bool{
	"redacted": true, "redacted for privacy": true, "redacted for gdpr": true,
	"data redacted": true, "data protected": true, "not disclosed": true,
	"withheld": true, "withheld for privacy": true, "non-public data": true,
	"private": true,
}

// decodeResponse parsea el cuerpo y lo convierte en Registration.
func decodeResponse(body []byte, key domain.AttributionKey) (*domain.Registration, error) {
	var resp rdapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Mark(errors.ErrInvalidResponse, errors.Wrapf(err, "decode rdap response for %s", key.Value))
	}
	if resp.ErrorCode != 0 {
		return nil, errors.Wrapf(errors.ErrInvalidResponse, "rdap error object %d for %s", resp.ErrorCode, key.Value)
	}
	if resp.Handle == "" && resp.LDHName == "" && resp.StartAddress == "" && len(resp.Cidrs) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidResponse, "rdap response for %s carries no object", key.Value)
	}
	return resp.registration(), nil
}

func (r *rdapResponse) registration() *domain.Registration {
	reg := &domain.Registration{
		Handle:  r.Handle,
		Name:    r.Name,
		Country: r.Country,
		Status:  r.Status,
		Range:   r.networkRange(),
	}
	if reg.Name == "" {
		reg.Name = strings.ToLower(r.LDHName)
	}

	for _, event := range r.Events {
		switch strings.ToLower(event.EventAction) {
		case "registration":
			reg.RegisteredAt = event.EventDate
		case "last changed":
			reg.LastChangedAt = event.EventDate
		}
	}

	for _, entity := range r.Entities {
		if hasRole(entity.Roles, "registrant") && reg.Organization == "" {
			reg.Organization = firstClean(vcardField(entity.VCardArray, "org"), vcardField(entity.VCardArray, "fn"))
		}
		if hasRole(entity.Roles, "registrar") && reg.Registrar == "" {
			reg.Registrar = firstClean(vcardField(entity.VCardArray, "fn"), vcardField(entity.VCardArray, "org"))
		}
	}
	if reg.Organization == "" && r.LDHName == "" {
		reg.Organization = r.Name
	}

	reg.AbuseEmail, reg.AbusePhone = findAbuse(r.Entities)
	return reg
}

// networkRange prefiere cidr0 y cae a startAddress - endAddress.
func (r *rdapResponse) networkRange() string {
	var cidrs []string
	for _, c := range r.Cidrs {
		prefix := c.V4Prefix
		if prefix == "" {
			prefix = c.V6Prefix
		}
		if prefix != "" {
			cidrs = append(cidrs, fmt.Sprintf("%s/%d", prefix, c.Length))
		}
	}
	if len(cidrs) > 0 {
		return strings.Join(cidrs, ", ")
	}
	if r.StartAddress != "" && r.EndAddress != "" {
		return r.StartAddress + " - " + r.EndAddress
	}
	return r.StartAddress
}

// findAbuse busca recursivamente la primera entidad con rol abuse que tenga email o teléfono.
func findAbuse(entities []rdapEntity) (email, phone string) {
	for _, entity := range entities {
		if hasRole(entity.Roles, "abuse") {
			email = firstClean(vcardField(entity.VCardArray, "email"))
			phone = firstClean(strings.TrimPrefix(vcardField(entity.VCardArray, "tel"), "tel:"))
			if email != "" || phone != "" {
				return email, phone
			}
		}
		if e, p := findAbuse(entity.Entities); e != "" || p != "" {
			return e, p
		}
	}
	return "", ""
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// vcardField extrae un campo del jCard:
// ["vcard", [["version", {}, "text", "4.0"], ["fn", {}, "text", "John Doe"], ...]]
func vcardField(vcardArray []any, fieldName string) string {
	if len(vcardArray) < 2 {
		return ""
	}
	vcard, ok := vcardArray[1].([]any)
	if !ok {
		return ""
	}

	for _, item := range vcard {
		field, ok := item.([]any)
		if !ok || len(field) < 4 {
			continue
		}
		name, ok := field[0].(string)
		if !ok || !strings.EqualFold(name, fieldName) {
			continue
		}
		// un valor redactado no oculta las entradas siguientes del mismo campo
		if value := vcardValue(field[3]); value != "" && !isRedacted(value) {
			return value
		}
	}
	return ""
}

// vcardValue acepta valores simples o estructurados (org suele ser un array).
func vcardValue(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []any:
		var parts []string
		for _, p := range val {
			if s := vcardValue(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// firstClean retorna el primer valor no vacío y no redactado.
func firstClean(values ...string) string {
	for _, v := range values {
		if v != "" && !isRedacted(v) {
			return v
		}
	}
	return ""
}

func isRedacted(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.TrimPrefix(v, "tel:")
	v = strings.TrimPrefix(v, "mailto:")
	return redactedValues[strings.Trim(v, " .")]
}

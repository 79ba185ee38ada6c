// internal/testutil/rdap_server.go
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RDAPServer es un registro RDAP falso. Responde /ip/{addr} y /domain/{name}
// con los documentos programados y cuenta las consultas.
type RDAPServer struct {
	*httptest.Server

	mu       sync.Mutex
	objects  map[string]string
	statuses map[string]int
	queries  map[string]int
	delay    time.Duration
}

// NewRDAPServer arranca el registro. Cerrarlo con Close.
func NewRDAPServer() *RDAPServer {
	s := &RDAPServer{
		objects:  make(map[string]string),
		statuses: make(map[string]int),
		queries:  make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// BaseURL URL de servicio con barra final, como en el bootstrap de IANA.
func (s *RDAPServer) BaseURL() string { return s.URL + "/" }

// SetIP programa el documento para /ip/{addr}.
func (s *RDAPServer) SetIP(addr, body string) { s.set("ip/"+addr, body) }

// SetDomain programa el documento para /domain/{name}.
func (s *RDAPServer) SetDomain(name, body string) { s.set("domain/"+strings.ToLower(name), body) }

// SetStatus fuerza un código HTTP para "ip/{addr}" o "domain/{name}".
func (s *RDAPServer) SetStatus(object string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[object] = status
}

// SetDelay retrasa todas las respuestas.
func (s *RDAPServer) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Queries retorna cuántas veces se consultó "ip/{addr}" o "domain/{name}".
func (s *RDAPServer) Queries(object string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[object]
}

// TotalQueries retorna el total de consultas recibidas.
func (s *RDAPServer) TotalQueries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.queries {
		total += n
	}
	return total
}

func (s *RDAPServer) set(object, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[object] = body
}

func (s *RDAPServer) serve(w http.ResponseWriter, r *http.Request) {
	object := strings.TrimPrefix(r.URL.Path, "/")

	s.mu.Lock()
	s.queries[object]++
	body, ok := s.objects[object]
	status, forced := s.statuses[object]
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/rdap+json")
	switch {
	case forced:
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"errorCode":` + strconv.Itoa(status) + `}`))
	case !ok:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errorCode":404,"title":"Not Found"}`))
	default:
		_, _ = w.Write([]byte(body))
	}
}

// RDAPNetwork construye un objeto "ip network" con una entidad registrante
// y un contacto abuse anidado.
func RDAPNetwork(handle, name, org, abuseEmail, cidr string) string {
	prefix, length, _ := strings.Cut(cidr, "/")
	obj := map[string]any{
		"objectClassName": "ip network",
		"handle":          handle,
		"name":            name,
		"startAddress":    prefix,
		"country":         "ZZ",
		"cidr0_cidrs": []map[string]any{
			{"v4prefix": prefix, "length": atoi(length)},
		},
		"events": []map[string]string{
			{"eventAction": "registration", "eventDate": "2010-01-01T00:00:00Z"},
			{"eventAction": "last changed", "eventDate": "2020-06-01T00:00:00Z"},
		},
		"entities": []map[string]any{
			{
				"objectClassName": "entity",
				"handle":          handle + "-ORG",
				"roles":           []string{"registrant"},
				"vcardArray":      vcard(org, org, "", ""),
				"entities": []map[string]any{
					{
						"objectClassName": "entity",
						"handle":          handle + "-ABUSE",
						"roles":           []string{"abuse"},
						"vcardArray":      vcard("Abuse Desk", "", abuseEmail, "+1.5555550100"),
					},
				},
			},
		},
	}
	return mustJSON(obj)
}

// RDAPDomain construye un objeto "domain" con registrador y contacto abuse.
func RDAPDomain(ldhName, registrar, abuseEmail string) string {
	obj := map[string]any{
		"objectClassName": "domain",
		"handle":          strings.ToUpper(strings.ReplaceAll(ldhName, ".", "_")) + "-DOM",
		"ldhName":         ldhName,
		"status":          []string{"active"},
		"events": []map[string]string{
			{"eventAction": "registration", "eventDate": "2023-03-14T00:00:00Z"},
		},
		"entities": []map[string]any{
			{
				"objectClassName": "entity",
				"roles":           []string{"registrant"},
				"vcardArray":      vcard("REDACTED FOR PRIVACY", "", "", ""),
			},
			{
				"objectClassName": "entity",
				"roles":           []string{"registrar"},
				"vcardArray":      vcard(registrar, "", "", ""),
				"entities": []map[string]any{
					{
						"objectClassName": "entity",
						"roles":           []string{"abuse"},
						"vcardArray":      vcard("", "", abuseEmail, ""),
					},
				},
			},
		},
	}
	return mustJSON(obj)
}

func vcard(fn, org, email, tel string) []any {
	props := []any{[]any{"version", map[string]any{}, "text", "4.0"}}
	if fn != "" {
		props = append(props, []any{"fn", map[string]any{}, "text", fn})
	}
	if org != "" {
		props = append(props, []any{"org", map[string]any{}, "text", org})
	}
	if email != "" {
		props = append(props, []any{"email", map[string]any{}, "text", email})
	}
	if tel != "" {
		props = append(props, []any{"tel", map[string]any{"type": "voice"}, "uri", "tel:" + tel})
	}
	return []any{"vcard", props}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

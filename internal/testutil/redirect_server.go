// internal/testutil/redirect_server.go
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Route es la respuesta programada para host+path.
type Route struct {
	Status      int
	Location    string
	ContentType string
	Body        string
	Delay       time.Duration
}

// Redirect devuelve una ruta 302 hacia location.
func Redirect(location string) Route {
	return Route{Status: http.StatusFound, Location: location}
}

// Page devuelve una ruta 200 con una página HTML titulada.
func Page(title string) Route {
	return Route{
		Status:      http.StatusOK,
		ContentType: "text/html; charset=utf-8",
		Body:        "<html><head><title>" + title + "</title></head><body>ok</body></html>",
	}
}

// MetaRefresh devuelve una página 200 cuyo <meta refresh> apunta a target.
func MetaRefresh(target string) Route {
	return Route{
		Status:      http.StatusOK,
		ContentType: "text/html",
		Body:        `<html><head><meta http-equiv="refresh" content="0; url=` + target + `"><title>Redirecting</title></head></html>`,
	}
}

// RedirectServer es un servidor web falso con rutas programadas por host y path.
// Usar junto con Transport() para que cualquier host resuelva a él.
type RedirectServer struct {
	*httptest.Server

	mu     sync.Mutex
	routes map[string]Route
	hits   map[string]int
}

// NewRedirectServer arranca el servidor. Cerrarlo con Close.
func NewRedirectServer() *RedirectServer {
	s := &RedirectServer{
		routes: make(map[string]Route),
		hits:   make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Handle programa la ruta para "host/path" (ej. "a.example/x").
func (s *RedirectServer) Handle(hostPath string, route Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[routeKey(hostPath)] = route
}

// Hits retorna cuántas peticiones recibió "host/path".
func (s *RedirectServer) Hits(hostPath string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[routeKey(hostPath)]
}

// TotalHits retorna el total de peticiones recibidas.
func (s *RedirectServer) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

// Transport enruta cualquier host hacia este servidor.
func (s *RedirectServer) Transport() *http.Transport {
	return RoutingTransport(s.Server)
}

func (s *RedirectServer) serve(w http.ResponseWriter, r *http.Request) {
	key := routeKey(r.Host + r.URL.Path)

	s.mu.Lock()
	s.hits[key]++
	route, ok := s.routes[key]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if route.Delay > 0 {
		select {
		case <-time.After(route.Delay):
		case <-r.Context().Done():
			return
		}
	}
	if route.Location != "" {
		w.Header().Set("Location", route.Location)
	}
	if route.ContentType != "" {
		w.Header().Set("Content-Type", route.ContentType)
	}
	status := route.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(route.Body))
}

func routeKey(hostPath string) string {
	hostPath = strings.ToLower(hostPath)
	if i := strings.IndexByte(hostPath, '/'); i >= 0 {
		host := hostPath[:i]
		if h, _, found := strings.Cut(host, ":"); found {
			host = h
		}
		return host + hostPath[i:]
	}
	if h, _, found := strings.Cut(hostPath, ":"); found {
		hostPath = h
	}
	return hostPath + "/"
}

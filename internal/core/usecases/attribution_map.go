// internal/core/usecases/attribution_map.go
package usecases

import (
	"context"
	"sort"
	"sync"

	"phishtrace/internal/core/domain"
)

// claim es la reserva de una clave: done se cierra al publicar.
type claim struct {
	done chan struct{}
	rec  *domain.AttributionRecord
}

// AttributionMap es el mapa write-once clave -> registro de un run.
// Protocolo: Claim reserva la clave (solo el primer llamador resuelve),
// Publish escribe una única vez, Await espera la publicación.
// El mutex solo protege la inserción y la consulta; nunca se mantiene
// durante una llamada de red.
type AttributionMap struct {
	mu     sync.Mutex
	claims map[string]*claim
}

// NewAttributionMap crea un mapa vacío.
func NewAttributionMap() *AttributionMap {
	return &AttributionMap{claims: make(map[string]*claim)}
}

// Claim reserva key. Retorna true solo para el primer llamador, que queda
// obligado a publicar un registro para esa clave.
func (m *AttributionMap) Claim(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.claims[key]; ok {
		return false
	}
	m.claims[key] = &claim{done: make(chan struct{})}
	return true
}

// Publish escribe rec bajo rec.Key si la clave aún no tiene registro.
// Una clave sin reservar se reserva implícitamente. Retorna false si ya
// existía un registro publicado (nunca se sobrescribe).
func (m *AttributionMap) Publish(rec *domain.AttributionRecord) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.claims[rec.Key]
	if !ok {
		c = &claim{done: make(chan struct{})}
		m.claims[rec.Key] = c
	}
	if c.rec != nil {
		return false
	}
	c.rec = rec
	close(c.done)
	return true
}

// Await espera el registro de key. Retorna ctx.Err() si ctx termina antes.
// Una clave nunca reservada retorna (nil, false) de inmediato.
func (m *AttributionMap) Await(ctx context.Context, key string) (*domain.AttributionRecord, bool, error) {
	m.mu.Lock()
	c, ok := m.claims[key]
	m.mu.Unlock()
	if !ok {
		return nil, false, nil
	}

	// un registro ya publicado gana aunque ctx haya vencido
	select {
	case <-c.done:
		return c.rec, true, nil
	default:
	}

	select {
	case <-c.done:
		return c.rec, true, nil
	case <-ctx.Done():
		return nil, true, ctx.Err()
	}
}

// Pending retorna las claves reservadas que aún no tienen registro, ordenadas.
func (m *AttributionMap) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for k, c := range m.claims {
		if c.rec == nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Keys retorna todas las claves reservadas o publicadas, ordenadas.
func (m *AttributionMap) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.claims))
	for k := range m.claims {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot copia los registros publicados. Los punteros se comparten: el
// mismo registro sirve a todas las ocurrencias de la clave.
func (m *AttributionMap) Snapshot() map[string]*domain.AttributionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]*domain.AttributionRecord, len(m.claims))
	for k, c := range m.claims {
		if c.rec != nil {
			out[k] = c.rec
		}
	}
	return out
}

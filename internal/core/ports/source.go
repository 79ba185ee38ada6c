// internal/core/ports/source.go
package ports

import (
	"context"

	"phishtrace/internal/core/domain"
)

// Fetcher es el port de red para recorrer cadenas de redirección.
// Una llamada emite exactamente una petición (más un reintento como máximo)
// y nunca sigue redirecciones por sí misma: el enumerador decide cada salto.
type Fetcher interface {
	// Fetch solicita la URL y clasifica la respuesta. Los fallos se devuelven
	// dentro del resultado (Outcome = error), no como error de Go.
	Fetch(ctx context.Context, url string) domain.FetchResult
}

// RegistryClient consulta un servicio de registro autoritativo.
type RegistryClient interface {
	// QueryRegistry consulta serviceURL por la clave. Para dominios la clave
	// ya llega reducida al nombre registrable.
	QueryRegistry(ctx context.Context, serviceURL string, key domain.AttributionKey) (*domain.Registration, error)
}

// BootstrapSource carga la tabla de delegación de un run.
type BootstrapSource interface {
	// Load retorna la tabla. Ante error el llamador usa una tabla no disponible.
	Load(ctx context.Context) (*domain.DelegationTable, error)
}

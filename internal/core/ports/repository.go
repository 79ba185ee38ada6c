// internal/core/ports/repository.go
package ports

import (
	"context"

	"phishtrace/internal/core/domain"
)

// AttributionCache es el port de caché entre runs.
// Solo se almacenan registros resueltos con éxito; los errores nunca se cachean.
type AttributionCache interface {
	// Get retorna el registro cacheado para la clave, si existe y no expiró
	Get(ctx context.Context, key string) (*domain.AttributionRecord, bool)

	// Set almacena el registro bajo rec.Key
	Set(ctx context.Context, rec *domain.AttributionRecord)
}

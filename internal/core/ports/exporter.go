// internal/core/ports/exporter.go
package ports

import "phishtrace/internal/core/domain"

// Exporter es el port para exportar el Output Record terminado.
type Exporter interface {
	// Name retorna el nombre del exporter (ej: "json", "table")
	Name() string

	// Export escribe el record. Nunca lo modifica.
	Export(rec *domain.OutputRecord) error
}

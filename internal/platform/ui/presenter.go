// internal/platform/ui/presenter.go
package ui

import (
	"time"

	"phishtrace/internal/core/domain"
	"phishtrace/internal/core/ports"
)

// Presenter presenta el progreso de un run en la terminal.
// Recibe los eventos del pipeline a través de ports.Observer.
type Presenter interface {
	ports.Observer

	// Start muestra la configuración del run
	Start(info RunInfo)

	// Warning muestra una advertencia
	Warning(msg string)

	// Finish muestra el resumen final del record
	Finish(rec *domain.OutputRecord)

	// Close limpia recursos del presenter
	Close() error
}

// RunInfo contiene la información inicial del run
type RunInfo struct {
	Seeds      int
	Senders    int
	MaxDepth   int
	MaxLookups int
	Workers    int
	Deadline   time.Duration
}

// internal/platform/ui/symbols.go
package ui

import (
	"github.com/pterm/pterm"

	"phishtrace/internal/core/domain"
)

// Status representa el estado visual de una cadena o clave
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSuccess
	StatusWarning
	StatusError
)

// String convierte el status a string
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusWarning:
		return "warning"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Symbol retorna el símbolo Unicode para cada estado
func (s Status) Symbol() string {
	switch s {
	case StatusPending:
		return "⏸"
	case StatusRunning:
		return "⣾"
	case StatusSuccess:
		return "✓"
	case StatusWarning:
		return "⚠"
	case StatusError:
		return "✗"
	default:
		return "?"
	}
}

// Style retorna un pterm.Style configurado para el estado
func (s Status) Style() *pterm.Style {
	switch s {
	case StatusRunning:
		return pterm.NewStyle(pterm.FgCyan)
	case StatusSuccess:
		return pterm.NewStyle(pterm.FgGreen)
	case StatusWarning:
		return pterm.NewStyle(pterm.FgYellow)
	case StatusError:
		return pterm.NewStyle(pterm.FgRed)
	default:
		return pterm.NewStyle(pterm.FgGray)
	}
}

// ChainStatus mapea el estado de una cadena a su representación visual.
// Loop y depth son hallazgos, no fallos del run.
func ChainStatus(state domain.ChainState) Status {
	switch state {
	case domain.ChainFinalPage:
		return StatusSuccess
	case domain.ChainLoopDetected, domain.ChainDepthExceeded:
		return StatusWarning
	case domain.ChainError:
		return StatusError
	case domain.ChainFollowing:
		return StatusRunning
	default:
		return StatusPending
	}
}

// AttributionStatus mapea un registro de atribución a su representación visual.
func AttributionStatus(rec *domain.AttributionRecord) Status {
	switch {
	case rec == nil:
		return StatusPending
	case rec.OK():
		return StatusSuccess
	case rec.Failure != nil && rec.Failure.Kind == domain.KindNoDelegation:
		return StatusWarning
	default:
		return StatusError
	}
}

// internal/core/domain/errors.go
package domain

import (
	"context"
	"fmt"

	"phishtrace/internal/platform/errors"
)

// ErrorKind clasifica cada fallo contenido en un nodo o registro de atribución.
type ErrorKind string

const (
	KindTransientNetwork  ErrorKind = "transient_network"
	KindTimeout           ErrorKind = "timeout"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindNoDelegation      ErrorKind = "no_delegation"
	KindLoopDetected      ErrorKind = "loop_detected"
	KindDepthExceeded     ErrorKind = "depth_exceeded"

	// Extensiones: fallos que los kinds anteriores no distinguen
	KindTLSFailure   ErrorKind = "tls_failure"
	KindNotFound     ErrorKind = "not_found"
	KindInvalidInput ErrorKind = "invalid_input"
)

// Errores de dominio comunes.
var (
	ErrInvalidRecord = errors.New("invalid output record")
	ErrUnknownKey    = errors.New("key is neither an ip address nor a domain")
)

// Failure es la etiqueta de error serializable de un nodo o registro.
type Failure struct {
	// Kind clase del fallo
	Kind ErrorKind `json:"kind" yaml:"kind"`

	// Message detalle legible (no estable)
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

func (f *Failure) Error() string {
	if f.Message == "" {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// NewFailure construye una etiqueta a partir de un error cualquiera.
func NewFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	return &Failure{Kind: KindOf(err), Message: err.Error()}
}

// FailureOf construye una etiqueta con kind explícito.
func FailureOf(kind ErrorKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf mapea una cadena de errores envuelta a exactamente un ErrorKind.
// Los errores desconocidos se tratan como fallos de red transitorios.
func KindOf(err error) ErrorKind {
	var failure *Failure
	switch {
	case err == nil:
		return ""
	case errors.As(err, &failure):
		return failure.Kind
	case errors.Is(err, errors.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindTimeout
	case errors.Is(err, errors.ErrTLS):
		return KindTLSFailure
	case errors.Is(err, errors.ErrNoDelegation):
		return KindNoDelegation
	case errors.Is(err, errors.ErrNotFound):
		return KindNotFound
	case errors.Is(err, errors.ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, errors.ErrInvalidResponse):
		return KindMalformedResponse
	default:
		return KindTransientNetwork
	}
}

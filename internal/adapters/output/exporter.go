// internal/adapters/output/exporter.go
package output

import (
	"io"

	"phishtrace/internal/core/domain"
	"phishtrace/internal/core/ports"
)

var (
	_ ports.Exporter = (*JSONFileExporter)(nil)
	_ ports.Exporter = (*JSONStreamExporter)(nil)
	_ ports.Exporter = (*TableExporter)(nil)
)

// JSONFileExporter escribe el record en el directorio de salida.
type JSONFileExporter struct {
	Dir string

	// Path ruta del último archivo escrito
	Path string
}

func (e *JSONFileExporter) Name() string { return "json" }

func (e *JSONFileExporter) Export(rec *domain.OutputRecord) error {
	path, err := OutputJSON(e.Dir, rec)
	if err != nil {
		return err
	}
	e.Path = path
	return nil
}

// JSONStreamExporter escribe el record en un writer (stdout por defecto).
type JSONStreamExporter struct {
	W      io.Writer
	Pretty bool
}

func (e *JSONStreamExporter) Name() string { return "stdout" }

func (e *JSONStreamExporter) Export(rec *domain.OutputRecord) error {
	if e.W == nil {
		return OutputJSONStdout(rec, e.Pretty)
	}
	return WriteJSON(e.W, rec, e.Pretty)
}

// TableExporter imprime la tabla resumen.
type TableExporter struct {
	W io.Writer
}

func (e *TableExporter) Name() string { return "table" }

func (e *TableExporter) Export(rec *domain.OutputRecord) error {
	if e.W == nil {
		return OutputTable(rec)
	}
	return WriteTable(e.W, rec)
}

// internal/adapters/output/json.go
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"phishtrace/internal/core/domain"
)

// sanitizeName convierte un identificador en un nombre de archivo válido.
// Ejemplo: "run:42/a" -> "run_42_a"
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, name)
}

// RecordFilename nombre del archivo JSON de un run.
func RecordFilename(rec *domain.OutputRecord) string {
	id := rec.RunID
	if id == "" {
		id = time.Now().Format("20060102_150405")
	}
	return fmt.Sprintf("phishtrace_%s.json", sanitizeName(id))
}

// OutputJSON escribe el record indentado en <dir>/phishtrace_<run>.json y
// retorna la ruta del archivo.
func OutputJSON(dir string, rec *domain.OutputRecord) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, RecordFilename(rec))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := WriteJSON(f, rec, true); err != nil {
		return "", err
	}
	return path, nil
}

// OutputJSONStdout escribe el record en stdout.
func OutputJSONStdout(rec *domain.OutputRecord, pretty bool) error {
	return WriteJSON(os.Stdout, rec, pretty)
}

// WriteJSON codifica el record en w.
func WriteJSON(w io.Writer, rec *domain.OutputRecord, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

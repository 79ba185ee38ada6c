// internal/adapters/input/record.go
package input

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"phishtrace/internal/core/domain"
	"phishtrace/internal/platform/errors"
)

// Format formato de un record de entrada.
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// maxRecordBytes límite de tamaño de un record de entrada.
const maxRecordBytes = 16 << 20

// ReadRecord lee un record desde path ("-" = stdin). El formato se deduce de
// la extensión y, si no la hay, del contenido.
func ReadRecord(path string, stdin io.Reader) (domain.OutputRecord, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		data, err = io.ReadAll(io.LimitReader(stdin, maxRecordBytes))
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		if os.IsNotExist(err) {
			return domain.OutputRecord{}, errors.Mark(errors.ErrNotFound, err)
		}
		return domain.OutputRecord{}, errors.Wrapf(err, "read record %s", path)
	}

	rec, err := DecodeRecord(data, formatOf(path))
	if err != nil {
		return domain.OutputRecord{}, errors.Wrapf(err, "record %s", path)
	}
	return rec, nil
}

// DecodeRecord decodifica un record JSON o YAML. Remitentes y URLs aceptan
// strings sueltos u objetos.
func DecodeRecord(data []byte, format Format) (domain.OutputRecord, error) {
	var rec domain.OutputRecord

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return rec, errors.Wrap(errors.ErrInvalidInput, "empty record")
	}
	if format == FormatAuto {
		format = FormatYAML
		if trimmed[0] == '{' {
			format = FormatJSON
		}
	}

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			return rec, errors.Mark(errors.ErrInvalidInput, errors.Wrap(err, "decode json"))
		}
	case FormatYAML:
		if err := yaml.Unmarshal(trimmed, &rec); err != nil {
			return rec, errors.Mark(errors.ErrInvalidInput, errors.Wrap(err, "decode yaml"))
		}
	default:
		return rec, errors.Wrapf(errors.ErrInvalidInput, "unknown record format %q", format)
	}

	fillPositions(&rec)
	return rec, nil
}

// FromArgs construye un record a partir de remitentes y URLs sueltos.
func FromArgs(senders, urls []string) domain.OutputRecord {
	return domain.NewOutputRecord(senders, urls)
}

// Merge añade a rec los remitentes y URLs sueltos de la línea de comandos.
func Merge(rec domain.OutputRecord, senders, urls []string) domain.OutputRecord {
	extra := FromArgs(senders, urls)
	out := rec.Clone()
	out.Senders = append(out.Senders, extra.Senders...)
	out.Seeds = append(out.Seeds, extra.Seeds...)
	return out
}

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatAuto
	}
}

// fillPositions etiqueta las semillas sin posición con su índice en el record.
func fillPositions(rec *domain.OutputRecord) {
	for i := range rec.Seeds {
		if rec.Seeds[i].Position == "" {
			rec.Seeds[i].Position = "urls[" + strconv.Itoa(i) + "]"
		}
	}
}

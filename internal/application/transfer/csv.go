package transfer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"3tcapital/goglosas/internal/core/glosa"
	"3tcapital/goglosas/internal/core/ingreso"
	"3tcapital/goglosas/internal/core/seccion"
	"3tcapital/goglosas/internal/core/session"
)

// ErrMissingColumn is returned when a required CSV header is absent.
var ErrMissingColumn = errors.New("falta una columna obligatoria")

var headerAliases = map[string]string{
	"id":                      "id",
	"factura":                 "factura",
	"numero_factura":          "factura",
	"no_factura":              "factura",
	"servicio":                "servicio",
	"orden_servicio":          "orden_servicio",
	"orden":                   "orden_servicio",
	"valor_glosa":             "valor_glosa",
	"valor":                   "valor_glosa",
	"descripcion":             "descripcion",
	"descripción":             "descripcion",
	"tipo_glosa":              "tipo_glosa",
	"tipo":                    "tipo_glosa",
	"estado":                  "estado",
	"fecha":                   "fecha",
	"seccion":                 "seccion",
	"sección":                 "seccion",
	"registrada_internamente": "registrada_internamente",
	"valor_aceptado":          "valor_aceptado",
	"valor_no_aceptado":       "valor_no_aceptado",
}

// ImportGlosasCSV loads glosas from a CSV file with a header row. Both ';'
// and ',' delimiters are accepted. Bad rows are reported and skipped.
func (im *Importer) ImportGlosasCSV(ctx context.Context, sess session.Session, r io.Reader, target seccion.Seccion) (Report, error) {
	if err := sess.RequireAdmin(); err != nil {
		return Report{}, err
	}
	records, cols, err := readCSV(r)
	if err != nil {
		return Report{}, err
	}
	if _, ok := cols["factura"]; !ok {
		return Report{}, fmt.Errorf("%w: factura", ErrMissingColumn)
	}
	if _, ok := cols["valor_glosa"]; !ok {
		return Report{}, fmt.Errorf("%w: valor_glosa", ErrMissingColumn)
	}

	var (
		rows     []glosaRow
		rejected []RowError
	)
	for idx, rec := range records {
		line := idx + 2
		get := field(rec, cols)
		if isBlank(rec) {
			continue
		}

		valor, err := ParseAmount(get("valor_glosa"))
		if err != nil {
			rejected = append(rejected, RowError{Line: line, Message: fmt.Sprintf("valor_glosa inválido [%s]", get("valor_glosa"))})
			continue
		}
		g := glosa.Glosa{
			ID:                     get("id"),
			Factura:                get("factura"),
			Servicio:               get("servicio"),
			OrdenServicio:          get("orden_servicio"),
			ValorGlosa:             valor,
			Descripcion:            get("descripcion"),
			TipoGlosa:              parseTipo(get("tipo_glosa")),
			Estado:                 parseEstado(get("estado")),
			Fecha:                  get("fecha"),
			Seccion:                seccion.Seccion(get("seccion")),
			RegistradaInternamente: parseBool(get("registrada_internamente")),
		}
		rows = append(rows, glosaRow{line: line, glosa: g})
	}

	return im.storeGlosas(ctx, rows, rejected, target)
}

// ImportIngresosCSV loads ingresos from a CSV file with a header row.
func (im *Importer) ImportIngresosCSV(ctx context.Context, sess session.Session, r io.Reader, target seccion.Seccion) (Report, error) {
	if err := sess.RequireAdmin(); err != nil {
		return Report{}, err
	}
	records, cols, err := readCSV(r)
	if err != nil {
		return Report{}, err
	}
	for _, required := range []string{"factura", "valor_aceptado"} {
		if _, ok := cols[required]; !ok {
			return Report{}, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	var (
		rows     []ingresoRow
		rejected []RowError
	)
	for idx, rec := range records {
		line := idx + 2
		get := field(rec, cols)
		if isBlank(rec) {
			continue
		}

		aceptado, err := ParseAmount(get("valor_aceptado"))
		if err != nil {
			rejected = append(rejected, RowError{Line: line, Message: fmt.Sprintf("valor_aceptado inválido [%s]", get("valor_aceptado"))})
			continue
		}
		noAceptado, err := ParseAmount(get("valor_no_aceptado"))
		if err != nil {
			rejected = append(rejected, RowError{Line: line, Message: fmt.Sprintf("valor_no_aceptado inválido [%s]", get("valor_no_aceptado"))})
			continue
		}
		rows = append(rows, ingresoRow{line: line, ingreso: ingreso.Ingreso{
			ID:              get("id"),
			Factura:         get("factura"),
			ValorAceptado:   aceptado,
			ValorNoAceptado: noAceptado,
			Fecha:           get("fecha"),
			Seccion:         seccion.Seccion(get("seccion")),
		}})
	}

	return im.storeIngresos(ctx, rows, rejected, target)
}

func readCSV(r io.Reader) ([][]string, map[string]int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, ErrEmptyImport
	}

	cols := make(map[string]int)
	for idx, h := range all[0] {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		if canonical, ok := headerAliases[key]; ok {
			if _, seen := cols[canonical]; !seen {
				cols[canonical] = idx
			}
		}
	}
	return all[1:], cols, nil
}

// detectDelimiter picks ';' when the header line has more semicolons than
// commas. Spreadsheets configured for Spanish locales export with ';'.
func detectDelimiter(data []byte) rune {
	header := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		header = data[:idx]
	}
	if bytes.Count(header, []byte(";")) > bytes.Count(header, []byte(",")) {
		return ';'
	}
	return ','
}

func field(rec []string, cols map[string]int) func(string) string {
	return func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ParseAmount reads a money amount written with either '.' or ',' as the
// decimal separator and optional thousands separators and currency sign.
// An empty value is zero.
func ParseAmount(raw string) (decimal.Decimal, error) {
	v := strings.TrimSpace(raw)
	v = strings.TrimPrefix(v, "$")
	v = strings.ReplaceAll(v, " ", "")
	if v == "" {
		return decimal.Zero, nil
	}

	lastDot := strings.LastIndex(v, ".")
	lastComma := strings.LastIndex(v, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			v = strings.ReplaceAll(v, ".", "")
			v = strings.Replace(v, ",", ".", 1)
		} else {
			v = strings.ReplaceAll(v, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(v, ",") == 1 && len(v)-lastComma-1 <= 2 {
			v = strings.Replace(v, ",", ".", 1)
		} else {
			v = strings.ReplaceAll(v, ",", "")
		}
	case lastDot >= 0:
		if strings.Count(v, ".") > 1 || len(v)-lastDot-1 == 3 {
			v = strings.ReplaceAll(v, ".", "")
		}
	}
	return decimal.NewFromString(v)
}

func parseTipo(raw string) glosa.Tipo {
	for _, t := range glosa.Tipos {
		if strings.EqualFold(string(t), raw) {
			return t
		}
	}
	if strings.EqualFold(raw, "autorizacion") {
		return glosa.TipoAutorizacion
	}
	return glosa.Tipo(raw)
}

func parseEstado(raw string) glosa.Estado {
	for _, e := range glosa.Estados {
		if strings.EqualFold(string(e), raw) {
			return e
		}
	}
	return glosa.Estado(raw)
}

func parseBool(raw string) bool {
	switch strings.ToLower(raw) {
	case "true", "1", "si", "sí", "x":
		return true
	}
	return false
}

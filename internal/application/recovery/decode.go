package recovery

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"3tcapital/goglosas/internal/core/glosa"
	"3tcapital/goglosas/internal/core/ingreso"
)

// Kind is the collection a JSON array was recognised as.
type Kind int

const (
	KindUnknown Kind = iota
	KindGlosas
	KindIngresos
)

func (k Kind) String() string {
	switch k {
	case KindGlosas:
		return "glosas"
	case KindIngresos:
		return "ingresos"
	default:
		return "desconocido"
	}
}

// FlagField is the JSON name of the internal-registration flag.
const FlagField = "registrada_internamente"

var (
	// ErrNotArray is returned when the payload is not a JSON array.
	ErrNotArray = errors.New("el contenido no es un arreglo JSON")
	// ErrUnrecognized is returned when the first element matches no known shape.
	ErrUnrecognized = errors.New("formato de registros no reconocido")
)

// Decoded is the result of classifying a JSON array.
type Decoded struct {
	Kind     Kind
	Glosas   []glosa.Glosa
	Ingresos []ingreso.Ingreso
	// Skipped counts elements that could not be decoded into Kind.
	Skipped int
}

// Len returns the number of records decoded.
func (d Decoded) Len() int {
	return len(d.Glosas) + len(d.Ingresos)
}

// Decode parses raw as a JSON array and classifies it by the fields of its
// first element: factura with valor_glosa is a glosa collection, factura
// with valor_aceptado an ingreso collection. Elements that fail to decode
// are counted and skipped.
func Decode(raw []byte) (Decoded, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(raw), &items); err != nil {
		return Decoded{}, fmt.Errorf("%w: %v", ErrNotArray, err)
	}
	if len(items) == 0 {
		return Decoded{Kind: KindUnknown}, nil
	}

	kind := classify(items[0])
	out := Decoded{Kind: kind}
	switch kind {
	case KindGlosas:
		for _, item := range items {
			var g glosa.Glosa
			if err := json.Unmarshal(item, &g); err != nil {
				out.Skipped++
				continue
			}
			out.Glosas = append(out.Glosas, g)
		}
	case KindIngresos:
		for _, item := range items {
			var i ingreso.Ingreso
			if err := json.Unmarshal(item, &i); err != nil {
				out.Skipped++
				continue
			}
			out.Ingresos = append(out.Ingresos, i)
		}
	default:
		return out, ErrUnrecognized
	}
	return out, nil
}

func classify(first json.RawMessage) Kind {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(first, &fields); err != nil {
		return KindUnknown
	}
	_, hasFactura := fields["factura"]
	if !hasFactura {
		return KindUnknown
	}
	if _, ok := fields["valor_glosa"]; ok {
		return KindGlosas
	}
	if _, ok := fields["valor_aceptado"]; ok {
		return KindIngresos
	}
	return KindUnknown
}

// decodeGlosaRecords accepts a single glosa object or an array of them.
// Elements that fail to decode are dropped.
func decodeGlosaRecords(raw []byte) []glosa.Glosa {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	if raw[0] == '{' {
		var g glosa.Glosa
		if err := json.Unmarshal(raw, &g); err != nil {
			return nil
		}
		return []glosa.Glosa{g}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]glosa.Glosa, 0, len(items))
	for _, item := range items {
		var g glosa.Glosa
		if err := json.Unmarshal(item, &g); err != nil {
			continue
		}
		out = append(out, g)
	}
	return out
}

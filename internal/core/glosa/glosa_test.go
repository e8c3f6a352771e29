package glosa

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"3tcapital/goglosas/internal/core/seccion"
)

func g(id, factura, servicio string, valor int64) Glosa {
	return Glosa{ID: id, Factura: factura, Servicio: servicio, ValorGlosa: decimal.NewFromInt(valor)}
}

func TestDuplicateKey(t *testing.T) {
	a := g("1", " FAC-1 ", "Consulta", 100)
	b := g("2", "fac-1", "consulta ", 100)
	c := g("3", "fac-1", "consulta", 101)

	if a.DuplicateKey() != b.DuplicateKey() {
		t.Errorf("keys differ: %q vs %q", a.DuplicateKey(), b.DuplicateKey())
	}
	if a.DuplicateKey() == c.DuplicateKey() {
		t.Errorf("different amounts share key %q", a.DuplicateKey())
	}
	if got := DuplicateKeyOf("F", "S", decimal.RequireFromString("100.00")); got != DuplicateKeyOf("f", "s", decimal.NewFromInt(100)) {
		t.Errorf("trailing zeros change the key: %q", got)
	}
}

func TestFindDuplicates(t *testing.T) {
	glosas := []Glosa{
		g("1", "A", "S", 10),
		g("2", "B", "S", 10),
		g("3", "a", "s", 10),
		g("4", "C", "S", 10),
	}

	dups := FindDuplicates(glosas)
	if len(dups) != 2 {
		t.Fatalf("FindDuplicates() returned %d records, want 2", len(dups))
	}
	if dups[0].ID != "1" || dups[1].ID != "3" {
		t.Errorf("FindDuplicates() = %v, %v", dups[0].ID, dups[1].ID)
	}
	if FindDuplicates(nil) != nil {
		t.Error("FindDuplicates(nil) should be nil")
	}
}

func TestDedupe(t *testing.T) {
	glosas := []Glosa{
		g("1", "A", "S", 10),
		g("2", "A", "S", 10),
		g("3", "B", "S", 10),
		g("4", "A", "S", 10),
	}

	kept, removed := Dedupe(glosas)
	if len(kept) != 2 || kept[0].ID != "1" || kept[1].ID != "3" {
		t.Errorf("Dedupe() kept = %+v", kept)
	}
	if len(removed) != 2 || removed[0] != "2" || removed[1] != "4" {
		t.Errorf("Dedupe() removed = %v", removed)
	}
}

func TestHasDuplicate(t *testing.T) {
	existing := []Glosa{g("1", "A", "S", 10)}

	tests := []struct {
		name      string
		candidate Glosa
		want      bool
	}{
		{"same key new id", g("", "a", "s", 10), true},
		{"same record", g("1", "A", "S", 10), false},
		{"different amount", g("", "A", "S", 11), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasDuplicate(existing, tt.candidate); got != tt.want {
				t.Errorf("HasDuplicate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		glosa    Glosa
		problems int
	}{
		{"valid", Glosa{Factura: "A", ValorGlosa: decimal.NewFromInt(1), TipoGlosa: TipoRIPS, Estado: EstadoPendiente}, 0},
		{"missing factura", Glosa{Factura: "  "}, 1},
		{"negative value", Glosa{Factura: "A", ValorGlosa: decimal.NewFromInt(-1)}, 1},
		{"unknown everything", Glosa{Factura: "", TipoGlosa: "Otro", Estado: "Cerrada", Seccion: "FARMACIA"}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.glosa.Validate()
			if tt.problems == 0 {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() error = %v, want ErrInvalid", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || len(verr.Problems) != tt.problems {
				t.Errorf("Validate() problems = %v, want %d", verr, tt.problems)
			}
		})
	}
}

func TestEnSeccion(t *testing.T) {
	legacy := Glosa{}
	if !legacy.EnSeccion(seccion.Glosas) {
		t.Error("record without section should belong to GLOSAS")
	}
	if legacy.EnSeccion(seccion.Ratificadas) {
		t.Error("record without section should not belong to RATIFICADAS")
	}
	if !(Glosa{Seccion: "medicamentos"}).EnSeccion(seccion.Medicamentos) {
		t.Error("section match should ignore case")
	}
}

func TestPatchApply(t *testing.T) {
	registered := g("1", "A", "S", 10)
	registered.RegistradaInternamente = true

	no := false
	got := Patch{RegistradaInternamente: &no}.Apply(registered)
	if !got.RegistradaInternamente {
		t.Error("a false flag patch must not clear the internal flag")
	}

	got = RegistroInternoPatch().Apply(g("1", "A", "S", 10))
	if !got.RegistradaInternamente {
		t.Error("RegistroInternoPatch should set the flag")
	}

	got = EstadoPatch(EstadoAceptada).Apply(registered)
	if got.Estado != EstadoAceptada || got.Factura != "A" {
		t.Errorf("EstadoPatch().Apply() = %+v", got)
	}
}

func TestPatchColumns(t *testing.T) {
	no := false
	if !(Patch{RegistradaInternamente: &no}).IsEmpty() {
		t.Error("a patch with only a false flag should be empty")
	}

	s := seccion.Seccion("")
	cols := Patch{Seccion: &s, Estado: ptr(EstadoRespondida)}.Columns()
	if cols["seccion"] != "GLOSAS" {
		t.Errorf("seccion column = %v, want GLOSAS", cols["seccion"])
	}
	if cols["estado"] != "Respondida" {
		t.Errorf("estado column = %v", cols["estado"])
	}
	if _, ok := cols["registrada_internamente"]; ok {
		t.Error("unset flag must not be emitted")
	}
}

func ptr[T any](v T) *T { return &v }

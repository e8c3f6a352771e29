package reconciliation

import (
	"3tcapital/goglosas/internal/core/glosa"
	"3tcapital/goglosas/internal/core/ingreso"
)

// MergeGlosas returns the remote set with one correction: a glosa flagged
// as internally registered in local keeps the flag even if remote lost it.
func MergeGlosas(local, remote []glosa.Glosa) []glosa.Glosa {
	flagged := make(map[string]struct{})
	for _, g := range local {
		if g.RegistradaInternamente {
			flagged[g.ID] = struct{}{}
		}
	}

	merged := make([]glosa.Glosa, len(remote))
	for i, g := range remote {
		if !g.RegistradaInternamente {
			if _, ok := flagged[g.ID]; ok {
				g.RegistradaInternamente = true
			}
		}
		merged[i] = g
	}
	return merged
}

// MergeIngresos replaces local with remote unless remote came back empty
// while local still holds data, which is treated as a bad read. The second
// return value reports whether remote was discarded.
func MergeIngresos(local, remote []ingreso.Ingreso) ([]ingreso.Ingreso, bool) {
	if len(remote) == 0 && len(local) > 0 {
		return append([]ingreso.Ingreso(nil), local...), true
	}
	return append([]ingreso.Ingreso(nil), remote...), false
}

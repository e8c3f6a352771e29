package glosa

// FindDuplicates returns every glosa whose duplicate key is shared with at
// least one other glosa, in input order.
func FindDuplicates(glosas []Glosa) []Glosa {
	counts := make(map[string]int, len(glosas))
	for _, g := range glosas {
		counts[g.DuplicateKey()]++
	}

	var dups []Glosa
	for _, g := range glosas {
		if counts[g.DuplicateKey()] > 1 {
			dups = append(dups, g)
		}
	}
	return dups
}

// Dedupe splits glosas into the first-seen record per duplicate key and the
// ids of every later occurrence.
func Dedupe(glosas []Glosa) (kept []Glosa, removedIDs []string) {
	seen := make(map[string]struct{}, len(glosas))
	kept = make([]Glosa, 0, len(glosas))
	for _, g := range glosas {
		key := g.DuplicateKey()
		if _, ok := seen[key]; ok {
			removedIDs = append(removedIDs, g.ID)
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, g)
	}
	return kept, removedIDs
}

// HasDuplicate reports whether candidate shares its key with any of glosas.
func HasDuplicate(glosas []Glosa, candidate Glosa) bool {
	key := candidate.DuplicateKey()
	for _, g := range glosas {
		if g.ID != candidate.ID && g.DuplicateKey() == key {
			return true
		}
	}
	return false
}

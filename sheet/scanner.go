package sheet

// FindHeaderRow locates the row that best represents a section's column
// header within the first window rows. Per candidate row it counts the
// distinct canonical keys its cells resolve to; the first row reaching the
// overall maximum wins, and the result is accepted only when that maximum
// clears minHits. ok is false when no row qualifies.
//
// The bounded window keeps the scan O(window) regardless of sheet size and
// avoids false positives deep inside data regions.
func FindHeaderRow(rows [][]string, vocab Vocabulary, window, minHits int) (int, bool) {
	if window > len(rows) {
		window = len(rows)
	}
	best := -1
	bestHits := 0
	for i := 0; i < window; i++ {
		seen := make(map[string]struct{})
		for _, c := range rows[i] {
			if canon, ok := vocab.Resolve(c); ok {
				seen[canon] = struct{}{}
			}
		}
		// Strictly greater keeps the first row at the maximum: banner
		// rows above the real header never steal the win on a tie.
		if len(seen) > bestHits {
			bestHits = len(seen)
			best = i
		}
	}
	if best < 0 || bestHits < minHits {
		return 0, false
	}
	return best, true
}

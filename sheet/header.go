package sheet

// HeaderOptions tunes header-sheet extraction. Zero values fall back to the
// documented thresholds.
type HeaderOptions struct {
	Vocab       Vocabulary // nil → HeaderVocabulary()
	ScanWindow  int        // row-transposed field-row search depth (default 15)
	MinHits     int        // canonical hits required to trust a field row (default 3)
	BlankStreak int        // consecutive blank keys ending a paired table (default 5)
}

func (o *HeaderOptions) defaults() {
	if o.Vocab == nil {
		o.Vocab = HeaderVocabulary()
	}
	if o.ScanWindow <= 0 {
		o.ScanWindow = 15
	}
	if o.MinHits <= 0 {
		o.MinHits = 3
	}
	if o.BlankStreak <= 0 {
		o.BlankStreak = 5
	}
}

// ExtractHeader reads a header sheet into a raw key→value map, trying both
// supported layouts and merging the results. Row-transposed values win on
// key collision: a sheet that matches that layout is structurally
// unambiguous once its field row is found, while paired-column reading can
// sweep up unrelated rows. Recognized keys are stored under their canonical
// name (later rows overwrite earlier ones, and the merge stays
// deterministic); unrecognized spellings are kept raw so they can become
// declared placeholder keys downstream. Blank or missing values are empty
// strings, never errors.
func ExtractHeader(rs *RawSheet, opts HeaderOptions) map[string]string {
	opts.defaults()

	out := headerPairs(rs.Rows, opts)
	for k, v := range headerRowValues(rs.Rows, opts) {
		out[k] = v
	}
	return out
}

// headerPairs reads layout (a): row 1 holds column headers, data rows hold
// (key, value) pairs. The key column is the last column labeled key, field,
// header_key, or name; the value column the last labeled value, val, or
// header_value; columns A/B otherwise. Reading stops once BlankStreak
// consecutive blank keys suggest the table has ended.
func headerPairs(rows [][]string, opts HeaderOptions) map[string]string {
	out := make(map[string]string)
	if len(rows) == 0 {
		return out
	}

	idxKey, idxVal := 0, 1
	for j, h := range rows[0] {
		switch normLower(h) {
		case "key", "field", "header_key", "name":
			idxKey = j
		case "value", "val", "header_value":
			idxVal = j
		}
	}

	streak := 0
	for _, row := range rows[1:] {
		key := cell(row, idxKey)
		if key == "" {
			streak++
			if streak >= opts.BlankStreak {
				break
			}
			continue
		}
		streak = 0
		if canon, ok := opts.Vocab.Resolve(key); ok {
			key = canon
		}
		out[key] = cell(row, idxVal)
	}
	return out
}

// headerRowValues reads layout (b): one row carries canonical field names,
// the next row carries the values, matched by column position. The field
// row is found with the scanner; the window stops one row early so a value
// row always follows. Only canonical fields with non-empty values are kept.
func headerRowValues(rows [][]string, opts HeaderOptions) map[string]string {
	if len(rows) < 2 {
		return nil
	}
	window := opts.ScanWindow
	if window > len(rows)-1 {
		window = len(rows) - 1
	}
	i, ok := FindHeaderRow(rows, opts.Vocab, window, opts.MinHits)
	if !ok {
		return nil
	}

	out := make(map[string]string)
	values := rows[i+1]
	for j, f := range rows[i] {
		canon, ok := opts.Vocab.Resolve(f)
		if !ok {
			continue
		}
		if v := cell(values, j); v != "" {
			out[canon] = v
		}
	}
	return out
}

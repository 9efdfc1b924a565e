package sheet

import "strings"

// Vocabulary maps spelling variants of column and field names onto a closed
// set of canonical keys. Matching is exact after trimming and lowercasing;
// fuzzy or partial matches are deliberately not attempted, so ambiguous
// abbreviations never resolve by accident.
type Vocabulary map[string]string

// NewVocabulary builds a Vocabulary from canonical-key → synonym-list sets.
// Synonyms are stored lowercased.
func NewVocabulary(sets map[string][]string) Vocabulary {
	v := make(Vocabulary)
	for canon, syns := range sets {
		for _, s := range syns {
			v[strings.ToLower(s)] = canon
		}
	}
	return v
}

// Resolve maps one cell or column label to its canonical key.
func (v Vocabulary) Resolve(cell string) (string, bool) {
	k := strings.ToLower(strings.TrimSpace(cell))
	if k == "" {
		return "", false
	}
	canon, ok := v[k]
	return canon, ok
}

// Canonicals returns the set of canonical keys v resolves onto.
func (v Vocabulary) Canonicals() map[string]bool {
	out := make(map[string]bool)
	for _, canon := range v {
		out[canon] = true
	}
	return out
}

// Extend returns a copy of v with extra synonym sets merged in. The
// receiver is unchanged, so the base vocabularies stay pristine.
func (v Vocabulary) Extend(sets map[string][]string) Vocabulary {
	out := make(Vocabulary, len(v))
	for syn, canon := range v {
		out[syn] = canon
	}
	for canon, syns := range sets {
		for _, s := range syns {
			out[strings.ToLower(s)] = canon
		}
	}
	return out
}

// HeaderVocabulary returns the base vocabulary for header-sheet fields.
// Marker-style spellings (app_title, meta_repo, ...) are included so spec
// workbooks that key rows by placeholder name land on canonical fields.
func HeaderVocabulary() Vocabulary {
	return NewVocabulary(map[string][]string{
		"name":        {"name", "sop name", "sopname", "sop_nm", "app_title"},
		"id":          {"id", "sop id", "sopid", "sop_id", "meta_sop_default"},
		"entity":      {"entity", "sop entity", "sopentity", "sop_entity", "meta_entity"},
		"repo":        {"repo", "repo path", "metarepo", "meta repo", "codespaces repo", "meta_repo"},
		"webRoot":     {"webroot", "web root", "publish", "publish target", "stage repo", "web repo", "meta_webroot"},
		"runLabel":    {"runlabel", "run label", "run_label_default"},
		"imgFolder":   {"imgfolder", "img folder", "sopimgfolder", "image folder", "meta_img_folder_def"},
		"templateTag": {"templatetag", "template tag", "tag"},
	})
}

// StepVocabulary returns the base vocabulary for step-sheet columns.
func StepVocabulary() Vocabulary {
	return NewVocabulary(map[string][]string{
		"order":     {"order", "step", "step_no", "step number", "seq", "sequence", "steporder", "step order"},
		"id":        {"id", "step_id", "stepid", "step id", "code"},
		"title":     {"title", "step_title", "steptitle", "step title", "name"},
		"command":   {"command", "cmd", "procedure", "instructions"},
		"reminder":  {"reminder", "tips", "tip"},
		"notes":     {"notes", "run_notes", "comments"},
		"done":      {"done", "status", "complete", "completed"},
		"input":     {"inputneeded", "input needed", "inputs", "input"},
		"hints":     {"hints", "hint"},
		"program":   {"program"},
		"variants":  {"variants"},
		"phase":     {"phase"},
		"outFile":   {"expectedoutputfile", "expected output file", "outputfile", "output file", "outfile"},
		"outFolder": {"expectedoutputfolder", "expected output folder", "outputfolder", "output folder", "outfolder"},
	})
}

// Package checklist defines the canonical document model produced by
// extraction and consumed by injection: a header of run metadata plus an
// ordered list of steps.
package checklist

import "encoding/json"

// Header is the run metadata block. Every canonical key is always present;
// absent inputs resolve to their documented defaults at assembly. The JSON
// shape is exactly what downstream templates read as the sopInfo object.
type Header struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Entity      string `json:"entity"`
	Repo        string `json:"repo"`
	WebRoot     string `json:"webRoot"`
	RunLabel    string `json:"runLabel"`
	ImgFolder   string `json:"imgFolder"`
	TemplateTag string `json:"templateTag"`

	// Extra carries declared placeholder keys that are not part of the
	// canonical set. They inject as {{KEY}} markers only and never appear
	// in the JSON object.
	Extra map[string]string `json:"-"`
}

// StepRecord is one checklist step. Notes is filled from the sheet when a
// notes column exists; Runs always starts empty and is populated by the
// interactive checklist at run time, never here.
type StepRecord struct {
	ID       string     `json:"id"`
	Order    int        `json:"order"`
	Title    string     `json:"title"`
	Command  string     `json:"command"`
	Reminder string     `json:"reminder"`
	Notes    string     `json:"notes"`
	Done     bool       `json:"done"`
	Runs     []RunEntry `json:"runs"`
}

// RunEntry is one recorded execution of a step.
type RunEntry struct {
	Label string `json:"label"`
	Notes string `json:"notes"`
	Done  bool   `json:"done"`
}

// StepList is an ordered sequence of steps, ascending by Order.
type StepList []StepRecord

// Document pairs a complete Header with its StepList.
type Document struct {
	Header Header
	Steps  StepList
}

// StepsJSON serializes steps as the two-space-indented JSON array embedded
// into templates. A nil list serializes as [], never null. The standard
// HTML-safe escaping of < > & keeps literal "</script>" sequences from
// terminating the surrounding script block.
func StepsJSON(steps StepList) ([]byte, error) {
	if steps == nil {
		steps = StepList{}
	}
	return json.MarshalIndent(steps, "", "  ")
}

// HeaderJSON serializes h as the two-space-indented JSON object embedded
// into templates (the sopInfo shape). Extra keys are excluded.
func HeaderJSON(h Header) ([]byte, error) {
	return json.MarshalIndent(h, "", "  ")
}

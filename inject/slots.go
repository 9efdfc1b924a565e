package inject

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chkforge/chkforge/checklist"
)

// Marker tokens the engine recognizes. Anything else shaped like a marker
// passes through untouched.
const (
	MarkerSteps        = "{{STEPS_JSON}}"
	MarkerTitle        = "{{APP_TITLE}}"
	MarkerVisibleTitle = "{{APP_TITLE_VISIBLE}}"
	MarkerRepo         = "{{META_REPO}}"
	MarkerEntity       = "{{META_ENTITY}}"
	MarkerID           = "{{META_SOP_DEFAULT}}"
	MarkerImgFolder    = "{{META_IMG_FOLDER_DEF}}"
	MarkerWebRoot      = "{{META_WEBROOT}}"
	MarkerRunLabel     = "{{RUN_LABEL_DEFAULT}}"
)

// extraVisibleTitle is the declared extra key that feeds the visibleTitle
// slot instead of becoming a marker-only extra slot.
const extraVisibleTitle = "APP_TITLE_VISIBLE"

// Options parameterize the slot table for one template family. Zero values
// fall back to the documented names.
type Options struct {
	StepsVar     string // steps assignment name (default "steps")
	InfoVar      string // header-object assignment name (default "sopInfo")
	TitleTag     string // document title tag (default "title")
	VisibleTag   string // visible header element tag (default "div")
	VisibleID    string // visible header element id (default "headerTitle")
	TitleDefault string // title fallback text (default "Checklist")
	RequireInfo  bool   // fail when the header-object slot has no target
	RawScalars   bool   // disable HTML sanitization of scalar values
}

func (o *Options) defaults() {
	if o.StepsVar == "" {
		o.StepsVar = "steps"
	}
	if o.InfoVar == "" {
		o.InfoVar = "sopInfo"
	}
	if o.TitleTag == "" {
		o.TitleTag = "title"
	}
	if o.VisibleTag == "" {
		o.VisibleTag = "div"
	}
	if o.VisibleID == "" {
		o.VisibleID = "headerTitle"
	}
	if o.TitleDefault == "" {
		o.TitleDefault = "Checklist"
	}
}

// SlotsFor builds the slot table for doc: the required steps slot, the
// header-object slot, title and visible-title slots, the scalar meta
// markers, and one marker-only slot per declared extra key (sorted, so the
// pass order is stable). Serialization problems surface here, before any
// text is touched.
func SlotsFor(doc checklist.Document, opts Options) ([]Slot, error) {
	opts.defaults()

	stepsJSON, err := checklist.StepsJSON(doc.Steps)
	if err != nil {
		return nil, fmt.Errorf("inject: serialize steps: %w", err)
	}
	infoJSON, err := checklist.HeaderJSON(doc.Header)
	if err != nil {
		return nil, fmt.Errorf("inject: serialize header: %w", err)
	}

	title := doc.Header.Name
	if title == "" {
		title = opts.TitleDefault
	}
	visible := doc.Header.Extra[extraVisibleTitle]
	if visible == "" {
		visible = title
	}

	slots := []Slot{
		{Name: "steps", Marker: MarkerSteps, Target: AssignList(opts.StepsVar), Value: string(stepsJSON), JSON: true, Required: true},
		{Name: "info", Target: AssignObject(opts.InfoVar), Value: string(infoJSON), JSON: true, Required: opts.RequireInfo},
		{Name: "title", Marker: MarkerTitle, Target: TagPair(opts.TitleTag), Value: title},
		{Name: "visibleTitle", Marker: MarkerVisibleTitle, Target: ElementText(opts.VisibleTag, opts.VisibleID), Value: visible},
		{Name: "repo", Marker: MarkerRepo, Value: doc.Header.Repo},
		{Name: "entity", Marker: MarkerEntity, Value: doc.Header.Entity},
		{Name: "sopID", Marker: MarkerID, Value: doc.Header.ID},
		{Name: "imgFolder", Marker: MarkerImgFolder, Value: doc.Header.ImgFolder},
		{Name: "webRoot", Marker: MarkerWebRoot, Value: doc.Header.WebRoot},
		{Name: "runLabel", Marker: MarkerRunLabel, Value: doc.Header.RunLabel},
	}

	keys := make([]string, 0, len(doc.Header.Extra))
	for k := range doc.Header.Extra {
		if k == extraVisibleTitle {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		slots = append(slots, Slot{Name: "extra:" + k, Marker: "{{" + k + "}}", Value: doc.Header.Extra[k]})
	}
	return slots, nil
}

// Document injects doc into template using the documented slot table.
func Document(template string, doc checklist.Document, opts Options) (string, []Outcome, error) {
	slots, err := SlotsFor(doc, opts)
	if err != nil {
		return "", nil, err
	}
	return New(opts.RawScalars).Apply(template, slots)
}

// SlotReport describes how one slot would resolve in a template.
type SlotReport struct {
	Slot     string `json:"slot"`
	Marker   string `json:"marker,omitempty"`
	Markers  int    `json:"markers"`
	Targets  int    `json:"targets"`
	Required bool   `json:"required"`
}

// Inspect reports marker occurrences and structural matches per slot
// without substituting anything. Only slot values depend on doc, so an
// empty Document serves for pure template checks.
func Inspect(template string, doc checklist.Document, opts Options) ([]SlotReport, error) {
	slots, err := SlotsFor(doc, opts)
	if err != nil {
		return nil, err
	}
	reports := make([]SlotReport, 0, len(slots))
	for _, s := range slots {
		r := SlotReport{Slot: s.Name, Marker: s.Marker, Required: s.Required}
		if s.Marker != "" {
			r.Markers = strings.Count(template, s.Marker)
		}
		if s.Target.re != nil {
			r.Targets = len(s.Target.re.FindAllStringIndex(template, -1))
		}
		reports = append(reports, r)
	}
	return reports, nil
}

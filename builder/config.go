package builder

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chkforge/chkforge/checklist"
)

// Config holds all builder configuration. The zero value plus
// defaults() reproduces the historical behaviour of the spreadsheet
// variants this engine replaces.
type Config struct {
	// Sheet name candidates, tried in order, case-insensitive.
	HeaderSheets []string `yaml:"header_sheets"`
	StepsSheets  []string `yaml:"steps_sheets"`

	// HeaderDefaults seeds the assembled header; sheet values override
	// non-empty fields.
	HeaderDefaults HeaderDefaults `yaml:"header_defaults"`

	// ExtraMeta declares placeholder keys injected as {{KEY}} markers.
	// Sheet-declared extras override colliding config extras.
	ExtraMeta map[string]string `yaml:"extra_meta"`

	// Additional synonym spellings, canonical key -> spellings. They
	// merge into the built-in vocabularies.
	HeaderSynonyms map[string][]string `yaml:"header_synonyms"`
	StepSynonyms   map[string][]string `yaml:"step_synonyms"`

	Scan ScanConfig `yaml:"scan"`

	// TitleDefault replaces an empty header name in the title slots.
	TitleDefault string `yaml:"title_default"`

	// RequireInfo makes the sopInfo assignment a required slot, for
	// templates that render the header object client-side.
	RequireInfo bool `yaml:"require_info"`

	// RawScalars disables sanitization of scalar slot values.
	RawScalars bool `yaml:"raw_scalars"`
}

// HeaderDefaults mirrors the checklist header fields for YAML.
type HeaderDefaults struct {
	Name        string `yaml:"name"`
	ID          string `yaml:"id"`
	Entity      string `yaml:"entity"`
	Repo        string `yaml:"repo"`
	WebRoot     string `yaml:"web_root"`
	RunLabel    string `yaml:"run_label"`
	ImgFolder   string `yaml:"img_folder"`
	TemplateTag string `yaml:"template_tag"`
}

// ScanConfig bounds the sheet scanners.
type ScanConfig struct {
	HeaderWindow      int `yaml:"header_window"`       // field-name row search depth (default 15)
	StepsWindow       int `yaml:"steps_window"`        // step header row search depth (default 30)
	MinHits           int `yaml:"min_hits"`            // canonical hits to trust a row (default 3)
	HeaderBlankStreak int `yaml:"header_blank_streak"` // blank keys ending a paired table (default 5)
	StepsBlankStreak  int `yaml:"steps_blank_streak"`  // blank rows ending the step table (default 10)
}

func (c *Config) defaults() {
	if len(c.HeaderSheets) == 0 {
		c.HeaderSheets = []string{"Header", "META", "Meta"}
	}
	if len(c.StepsSheets) == 0 {
		c.StepsSheets = []string{"Steps", "Checklist", "STEPS"}
	}
	base := checklist.DefaultHeader()
	if c.HeaderDefaults.Repo == "" {
		c.HeaderDefaults.Repo = base.Repo
	}
	if c.HeaderDefaults.WebRoot == "" {
		c.HeaderDefaults.WebRoot = base.WebRoot
	}
	if c.HeaderDefaults.ImgFolder == "" {
		c.HeaderDefaults.ImgFolder = base.ImgFolder
	}
	if c.HeaderDefaults.TemplateTag == "" {
		c.HeaderDefaults.TemplateTag = base.TemplateTag
	}
	if c.Scan.HeaderWindow <= 0 {
		c.Scan.HeaderWindow = 15
	}
	if c.Scan.StepsWindow <= 0 {
		c.Scan.StepsWindow = 30
	}
	if c.Scan.MinHits <= 0 {
		c.Scan.MinHits = 3
	}
	if c.Scan.HeaderBlankStreak <= 0 {
		c.Scan.HeaderBlankStreak = 5
	}
	if c.Scan.StepsBlankStreak <= 0 {
		c.Scan.StepsBlankStreak = 10
	}
	if c.TitleDefault == "" {
		c.TitleDefault = "Checklist"
	}
}

// header converts the YAML defaults into a checklist header carrying
// the declared extra keys.
func (d HeaderDefaults) header(extra map[string]string) checklist.Header {
	h := checklist.Header{
		Name:        d.Name,
		ID:          d.ID,
		Entity:      d.Entity,
		Repo:        d.Repo,
		WebRoot:     d.WebRoot,
		RunLabel:    d.RunLabel,
		ImgFolder:   d.ImgFolder,
		TemplateTag: d.TemplateTag,
	}
	if len(extra) > 0 {
		h.Extra = make(map[string]string, len(extra))
		for k, v := range extra {
			h.Extra[k] = v
		}
	}
	return h
}

// LoadConfigFile reads a YAML config file. Unknown keys are rejected so
// a typoed setting fails loudly instead of silently using a default.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Package builder orchestrates checklist builds: load the spec
// workbook, extract header and steps, assemble the document, inject it
// into the template, write the output and record the journal row. It
// also carries the read-only surfaces (inspect, digest, scaffold) and
// MCP registration.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/chkforge/chkforge/buildid"
	"github.com/chkforge/chkforge/checklist"
	"github.com/chkforge/chkforge/inject"
	"github.com/chkforge/chkforge/journal"
	"github.com/chkforge/chkforge/sheet"
	"github.com/chkforge/chkforge/workbook"
)

// BuildInput names the files of one build.
type BuildInput struct {
	SpecPath     string `json:"spec"`
	TemplatePath string `json:"template"`
	OutPath      string `json:"out,omitempty"` // empty → derived beside the spec
}

// BuildResult summarizes a completed build.
type BuildResult struct {
	BuildID     string             `json:"buildId"`
	OutPath     string             `json:"outPath"`
	HeaderSheet string             `json:"headerSheet,omitempty"`
	StepsSheet  string             `json:"stepsSheet,omitempty"`
	HeaderKeys  int                `json:"headerKeys"`
	Steps       int                `json:"steps"`
	Outcomes    []inject.Outcome   `json:"outcomes"`
	Document    checklist.Document `json:"-"`
}

// Builder runs builds under one parsed configuration. A Builder is
// safe for concurrent Build calls; each build keeps its own state.
type Builder struct {
	cfg         Config
	log         *slog.Logger
	headerOpts  sheet.HeaderOptions
	stepOpts    sheet.StepOptions
	injectOpts  inject.Options
	defaults    checklist.Header
	mdConverter *converter.Converter
	journal     *journal.Journal
	newID       buildid.Generator
}

// New creates a Builder. A nil logger falls back to slog.Default().
func New(cfg Config, logger *slog.Logger) (*Builder, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	headerVocab := sheet.HeaderVocabulary()
	if err := checkSynonyms(headerVocab, cfg.HeaderSynonyms, "header"); err != nil {
		return nil, err
	}
	headerVocab = headerVocab.Extend(cfg.HeaderSynonyms)

	stepVocab := sheet.StepVocabulary()
	if err := checkSynonyms(stepVocab, cfg.StepSynonyms, "step"); err != nil {
		return nil, err
	}
	stepVocab = stepVocab.Extend(cfg.StepSynonyms)

	return &Builder{
		cfg: cfg,
		log: logger,
		headerOpts: sheet.HeaderOptions{
			Vocab:       headerVocab,
			ScanWindow:  cfg.Scan.HeaderWindow,
			MinHits:     cfg.Scan.MinHits,
			BlankStreak: cfg.Scan.HeaderBlankStreak,
		},
		stepOpts: sheet.StepOptions{
			Vocab:       stepVocab,
			ScanWindow:  cfg.Scan.StepsWindow,
			MinHits:     cfg.Scan.MinHits,
			BlankStreak: cfg.Scan.StepsBlankStreak,
		},
		injectOpts: inject.Options{
			TitleDefault: cfg.TitleDefault,
			RequireInfo:  cfg.RequireInfo,
			RawScalars:   cfg.RawScalars,
		},
		defaults: cfg.HeaderDefaults.header(cfg.ExtraMeta),
		mdConverter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		newID: buildid.Default,
	}, nil
}

func checkSynonyms(base sheet.Vocabulary, sets map[string][]string, kind string) error {
	if len(sets) == 0 {
		return nil
	}
	canon := base.Canonicals()
	for k := range sets {
		if !canon[k] {
			return fmt.Errorf("builder: unknown %s field %q in synonym config", kind, k)
		}
	}
	return nil
}

// AttachJournal makes every Build record its outcome on j. The builder
// does not own j; closing it stays with the caller.
func (b *Builder) AttachJournal(j *journal.Journal) {
	b.journal = j
}

// Build runs one build end to end. Fatal injection errors abort before
// any output is written; either way the attempt lands in the journal.
func (b *Builder) Build(ctx context.Context, in BuildInput) (*BuildResult, error) {
	started := time.Now()
	res := &BuildResult{BuildID: b.newID()}
	rec := journal.Record{
		ID:           res.BuildID,
		StartedAt:    started,
		SpecPath:     in.SpecPath,
		TemplatePath: in.TemplatePath,
	}
	log := b.log.With("build_id", res.BuildID, "spec", in.SpecPath)

	fail := func(err error) (*BuildResult, error) {
		rec.Status = journal.StatusError
		rec.Error = err.Error()
		b.record(rec)
		log.Error("build failed", "error", err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	wb, err := workbook.Open(in.SpecPath)
	if err != nil {
		return fail(err)
	}
	defer wb.Close()

	raw := map[string]string{}
	if name, ok := wb.Pick(b.cfg.HeaderSheets...); ok {
		rs, err := wb.Sheet(name)
		if err != nil {
			return fail(err)
		}
		raw = sheet.ExtractHeader(&rs, b.headerOpts)
		res.HeaderSheet = name
		rec.HeaderSheet = name
	} else {
		log.Warn("no header sheet, using defaults", "candidates", strings.Join(b.cfg.HeaderSheets, ","))
	}
	res.HeaderKeys = len(raw)

	stepsName, ok := wb.Pick(b.cfg.StepsSheets...)
	if !ok {
		// A workbook always carries at least one sheet; the first one
		// stands in when no candidate matches.
		stepsName = wb.Sheets()[0]
		log.Warn("no steps sheet candidate, falling back to first sheet", "sheet", stepsName)
	}
	res.StepsSheet = stepsName
	rec.StepsSheet = stepsName

	rs, err := wb.Sheet(stepsName)
	if err != nil {
		return fail(err)
	}
	steps, err := sheet.ExtractSteps(&rs, b.stepOpts)
	if err != nil {
		// No recognizable step table is survivable here; the steps
		// slot still has to resolve at injection time.
		log.Warn("step extraction found no header row", "sheet", stepsName, "error", err)
		steps = checklist.StepList{}
	}
	res.Steps = len(steps)
	rec.Steps = len(steps)

	doc := checklist.Document{
		Header: checklist.Assemble(raw, b.defaults, b.headerOpts.Vocab.Resolve),
		Steps:  steps,
	}
	if doc.Header.RunLabel == "" {
		doc.Header.RunLabel = specStem(in.SpecPath)
	}
	res.Document = doc

	tmpl, err := os.ReadFile(in.TemplatePath)
	if err != nil {
		return fail(err)
	}

	html, outcomes, err := inject.Document(string(tmpl), doc, b.injectOpts)
	if err != nil {
		return fail(err)
	}
	res.Outcomes = outcomes

	outPath := in.OutPath
	if outPath == "" {
		outPath = DeriveOutPath(in.SpecPath, started)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if err := os.WriteFile(outPath, []byte(html), 0o644); err != nil {
		return fail(fmt.Errorf("write output: %w", err))
	}
	res.OutPath = outPath
	rec.OutPath = outPath

	rec.Status = journal.StatusOK
	b.record(rec)
	log.Info("build complete",
		"out", outPath,
		"steps", len(steps),
		"header_keys", len(raw),
		"duration_ms", time.Since(started).Milliseconds())
	return res, nil
}

func (b *Builder) record(rec journal.Record) {
	if b.journal != nil {
		b.journal.Record(rec)
	}
}

// DeriveOutPath names the output beside the spec file:
// <stem>_checklist_<YYMMDD_HHMM>.html.
func DeriveOutPath(specPath string, at time.Time) string {
	stem := specStem(specPath)
	name := fmt.Sprintf("%s_checklist_%s.html", stem, buildid.Stamp(at))
	return filepath.Join(filepath.Dir(specPath), name)
}

func specStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

package builder_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	_ "modernc.org/sqlite"

	"github.com/chkforge/chkforge/builder"
	"github.com/chkforge/chkforge/dbopen"
	"github.com/chkforge/chkforge/inject"
	"github.com/chkforge/chkforge/journal"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newBuilder(t *testing.T, cfg builder.Config) *builder.Builder {
	t.Helper()
	b, err := builder.New(cfg, discardLogger())
	if err != nil {
		t.Fatalf("builder.New: %v", err)
	}
	return b
}

// specFixture writes a workbook with a META header sheet and a Steps
// sheet carrying out-of-order rows, a duplicate raw id and a blank
// spacer row.
func specFixture(t *testing.T, dir string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	var err error
	set := func(sheet, ref string, v any) {
		if err == nil {
			err = f.SetCellValue(sheet, ref, v)
		}
	}

	if err := f.SetSheetName("Sheet1", "META"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	if _, err := f.NewSheet("Steps"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}

	set("META", "A1", "Field")
	set("META", "B1", "Value")
	set("META", "A2", "SOP Name")
	set("META", "B2", "Nightly Sync")
	set("META", "A3", "SOP ID")
	set("META", "B3", "X-101")
	set("META", "A4", "Run Label")
	set("META", "B4", "Batch7")

	set("Steps", "A1", "Order")
	set("Steps", "B1", "ID")
	set("Steps", "C1", "Title")
	set("Steps", "D1", "Command")
	set("Steps", "E1", "Done")
	// Out of order on purpose; row 3 left blank as a spacer.
	set("Steps", "A2", 2)
	set("Steps", "B2", "Step A")
	set("Steps", "C2", "Calibrate")
	set("Steps", "D2", "run calib.sh")
	set("Steps", "E2", "n")
	set("Steps", "A4", 1)
	set("Steps", "B4", "Step A")
	set("Steps", "C4", "Prep")
	set("Steps", "D4", "echo hi")
	set("Steps", "E4", "y")
	if err != nil {
		t.Fatalf("fixture cell: %v", err)
	}

	path := filepath.Join(dir, "nightly.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save fixture: %v", err)
	}
	return path
}

const markerTemplate = `<!doctype html>
<title>{{APP_TITLE}}</title>
<div id="headerTitle">{{APP_TITLE_VISIBLE}}</div>
<input value="{{META_SOP_DEFAULT}}"> <input value="{{RUN_LABEL_DEFAULT}}">
<script>
let steps = {{STEPS_JSON}};
</script>
`

const fallbackTemplate = `<html><head><title>Old</title></head><body>
<script>
let sopInfo = {};
let steps = [];
</script></body></html>
`

func writeTemplate(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "template.html")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	return path
}

func TestBuildMarkerTemplate(t *testing.T) {
	dir := t.TempDir()
	spec := specFixture(t, dir)
	tmpl := writeTemplate(t, dir, markerTemplate)
	out := filepath.Join(dir, "built.html")

	db := dbopen.OpenMemory(t, dbopen.WithSchema(journal.Schema))
	j := journal.New(db)

	b := newBuilder(t, builder.Config{})
	b.AttachJournal(j)

	res, err := b.Build(context.Background(), builder.BuildInput{
		SpecPath:     spec,
		TemplatePath: tmpl,
		OutPath:      out,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if res.OutPath != out {
		t.Errorf("OutPath = %q, want %q", res.OutPath, out)
	}
	if res.HeaderSheet != "META" || res.StepsSheet != "Steps" {
		t.Errorf("sheets = %q, %q", res.HeaderSheet, res.StepsSheet)
	}
	if res.Steps != 2 {
		t.Errorf("Steps = %d, want 2", res.Steps)
	}
	if res.BuildID == "" || !strings.HasPrefix(res.BuildID, "bld_") {
		t.Errorf("BuildID = %q", res.BuildID)
	}

	// The build sorts on order: the row 1 entry comes first even though
	// the sheet listed it second, and the shared raw id got a suffix.
	steps := res.Document.Steps
	if steps[0].Order != 1 || steps[0].Title != "Prep" {
		t.Errorf("steps[0] = %+v", steps[0])
	}
	if steps[1].Order != 2 || steps[1].Title != "Calibrate" {
		t.Errorf("steps[1] = %+v", steps[1])
	}
	ids := map[string]bool{steps[0].ID: true, steps[1].ID: true}
	if len(ids) != 2 {
		t.Errorf("ids not unique: %q, %q", steps[0].ID, steps[1].ID)
	}
	if !steps[0].Done || steps[1].Done {
		t.Errorf("done flags = %v, %v", steps[0].Done, steps[1].Done)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	html := string(data)
	for _, want := range []string{
		"<title>Nightly Sync</title>",
		`<input value="X-101">`,
		`<input value="Batch7">`,
		`"title": "Calibrate"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("output missing %q:\n%s", want, html)
		}
	}
	if strings.Contains(html, "{{") {
		t.Errorf("unresolved markers left in output:\n%s", html)
	}

	via := map[string]string{}
	for _, o := range res.Outcomes {
		via[o.Slot] = o.Via
	}
	if via["steps"] != inject.ViaMarker {
		t.Errorf("steps via %q, want marker", via["steps"])
	}

	if err := j.Close(); err != nil {
		t.Fatalf("journal close: %v", err)
	}
	recs, err := j.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 1 || recs[0].Status != journal.StatusOK || recs[0].ID != res.BuildID {
		t.Errorf("journal rows = %+v", recs)
	}
}

func TestBuildStructuralFallback(t *testing.T) {
	dir := t.TempDir()
	spec := specFixture(t, dir)
	tmpl := writeTemplate(t, dir, fallbackTemplate)
	out := filepath.Join(dir, "built.html")

	b := newBuilder(t, builder.Config{})
	res, err := b.Build(context.Background(), builder.BuildInput{
		SpecPath:     spec,
		TemplatePath: tmpl,
		OutPath:      out,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	data, _ := os.ReadFile(out)
	html := string(data)
	if !strings.Contains(html, "<title>Nightly Sync</title>") {
		t.Errorf("title tag not patched:\n%s", html)
	}
	if !strings.Contains(html, `"id": "X-101"`) {
		t.Errorf("sopInfo not injected:\n%s", html)
	}
	if strings.Contains(html, "let steps = [];") {
		t.Errorf("steps literal not replaced:\n%s", html)
	}

	via := map[string]string{}
	for _, o := range res.Outcomes {
		via[o.Slot] = o.Via
	}
	if via["steps"] != inject.ViaPattern || via["info"] != inject.ViaPattern {
		t.Errorf("outcomes = %v", via)
	}
}

func TestBuildMissingStepsTargetWritesNothing(t *testing.T) {
	dir := t.TempDir()
	spec := specFixture(t, dir)
	tmpl := writeTemplate(t, dir, "<html><body>static page</body></html>")
	out := filepath.Join(dir, "built.html")

	db := dbopen.OpenMemory(t, dbopen.WithSchema(journal.Schema))
	j := journal.New(db)

	b := newBuilder(t, builder.Config{})
	b.AttachJournal(j)

	_, err := b.Build(context.Background(), builder.BuildInput{
		SpecPath:     spec,
		TemplatePath: tmpl,
		OutPath:      out,
	})
	if !errors.Is(err, inject.ErrMissingSlot) {
		t.Fatalf("err = %v, want ErrMissingSlot", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("fatal build must not write output")
	}

	j.Close()
	recs, _ := j.Recent(context.Background(), 5)
	if len(recs) != 1 || recs[0].Status != journal.StatusError || recs[0].Error == "" {
		t.Errorf("journal rows = %+v", recs)
	}
}

func TestBuildDerivedOutPath(t *testing.T) {
	dir := t.TempDir()
	spec := specFixture(t, dir)
	tmpl := writeTemplate(t, dir, markerTemplate)

	b := newBuilder(t, builder.Config{})
	res, err := b.Build(context.Background(), builder.BuildInput{
		SpecPath:     spec,
		TemplatePath: tmpl,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if filepath.Dir(res.OutPath) != dir {
		t.Errorf("derived output must sit beside the spec, got %q", res.OutPath)
	}
	name := filepath.Base(res.OutPath)
	if !strings.HasPrefix(name, "nightly_checklist_") || !strings.HasSuffix(name, ".html") {
		t.Errorf("derived name = %q", name)
	}
	if _, err := os.Stat(res.OutPath); err != nil {
		t.Errorf("derived output not written: %v", err)
	}
}

func TestBuildRunLabelFallsBackToSpecStem(t *testing.T) {
	dir := t.TempDir()

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "Steps")
	f.SetCellValue("Steps", "A1", "Order")
	f.SetCellValue("Steps", "B1", "Title")
	f.SetCellValue("Steps", "C1", "Command")
	f.SetCellValue("Steps", "A2", 1)
	f.SetCellValue("Steps", "B2", "Only step")
	f.SetCellValue("Steps", "C2", "restart.sh --dry-run")
	spec := filepath.Join(dir, "reactor_restart.xlsx")
	if err := f.SaveAs(spec); err != nil {
		t.Fatalf("save: %v", err)
	}
	f.Close()

	tmpl := writeTemplate(t, dir, `<input value="{{RUN_LABEL_DEFAULT}}">`+"\nlet steps = [];")
	out := filepath.Join(dir, "built.html")

	b := newBuilder(t, builder.Config{})
	res, err := b.Build(context.Background(), builder.BuildInput{
		SpecPath:     spec,
		TemplatePath: tmpl,
		OutPath:      out,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Document.Header.RunLabel != "reactor_restart" {
		t.Errorf("RunLabel = %q, want spec stem", res.Document.Header.RunLabel)
	}
	// No META sheet in this workbook: header comes entirely from defaults.
	if res.HeaderSheet != "" || res.HeaderKeys != 0 {
		t.Errorf("header fields = %q, %d; want empty", res.HeaderSheet, res.HeaderKeys)
	}

	data, _ := os.ReadFile(out)
	if !strings.Contains(string(data), `<input value="reactor_restart">`) {
		t.Errorf("run label marker not filled:\n%s", data)
	}
}

func TestBuildStepsSheetFallsBackToFirstSheet(t *testing.T) {
	dir := t.TempDir()

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "Tasks")
	f.SetCellValue("Tasks", "A1", "Order")
	f.SetCellValue("Tasks", "B1", "Title")
	f.SetCellValue("Tasks", "C1", "Command")
	f.SetCellValue("Tasks", "A2", 1)
	f.SetCellValue("Tasks", "B2", "Lone task")
	f.SetCellValue("Tasks", "C2", "do it")
	spec := filepath.Join(dir, "tasks.xlsx")
	if err := f.SaveAs(spec); err != nil {
		t.Fatalf("save: %v", err)
	}
	f.Close()

	tmpl := writeTemplate(t, dir, "let steps = [];")
	b := newBuilder(t, builder.Config{})
	res, err := b.Build(context.Background(), builder.BuildInput{
		SpecPath:     spec,
		TemplatePath: tmpl,
		OutPath:      filepath.Join(dir, "built.html"),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.StepsSheet != "Tasks" || res.Steps != 1 {
		t.Errorf("StepsSheet = %q, Steps = %d", res.StepsSheet, res.Steps)
	}
}

func TestBuildMissingSpecFile(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeTemplate(t, dir, markerTemplate)

	b := newBuilder(t, builder.Config{})
	_, err := b.Build(context.Background(), builder.BuildInput{
		SpecPath:     filepath.Join(dir, "absent.xlsx"),
		TemplatePath: tmpl,
	})
	if err == nil {
		t.Fatal("want error for missing spec")
	}
}

func TestNewRejectsUnknownSynonymField(t *testing.T) {
	_, err := builder.New(builder.Config{
		StepSynonyms: map[string][]string{"nonsense": {"whatever"}},
	}, discardLogger())
	if err == nil {
		t.Fatal("want error for unknown canonical field")
	}
	if !strings.Contains(err.Error(), "nonsense") {
		t.Errorf("err = %v, want the offending field named", err)
	}
}

func TestBuildWithExtraSynonymsAndMeta(t *testing.T) {
	dir := t.TempDir()

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "Steps")
	f.SetCellValue("Steps", "A1", "Seq#")
	f.SetCellValue("Steps", "B1", "Action")
	f.SetCellValue("Steps", "C1", "Title")
	f.SetCellValue("Steps", "A2", 1)
	f.SetCellValue("Steps", "B2", "wipe the bench")
	f.SetCellValue("Steps", "C2", "Clean")
	spec := filepath.Join(dir, "lab.xlsx")
	if err := f.SaveAs(spec); err != nil {
		t.Fatalf("save: %v", err)
	}
	f.Close()

	tmpl := writeTemplate(t, dir, "{{LAB_ROOM}}\nlet steps = [];")
	out := filepath.Join(dir, "built.html")

	b := newBuilder(t, builder.Config{
		StepSynonyms: map[string][]string{
			"order":   {"seq#"},
			"command": {"action"},
		},
		ExtraMeta: map[string]string{"LAB_ROOM": "B-204"},
	})
	res, err := b.Build(context.Background(), builder.BuildInput{
		SpecPath:     spec,
		TemplatePath: tmpl,
		OutPath:      out,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Steps != 1 || res.Document.Steps[0].Command != "wipe the bench" {
		t.Errorf("custom synonyms not applied: %+v", res.Document.Steps)
	}

	data, _ := os.ReadFile(out)
	if !strings.Contains(string(data), "B-204") {
		t.Errorf("declared extra key not injected:\n%s", data)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chkforge.yaml")
	content := `
header_sheets: [Meta]
header_defaults:
  repo: /srv/checklists
scan:
  steps_window: 50
title_default: Procedure
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := builder.LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if len(cfg.HeaderSheets) != 1 || cfg.HeaderSheets[0] != "Meta" {
		t.Errorf("HeaderSheets = %v", cfg.HeaderSheets)
	}
	if cfg.HeaderDefaults.Repo != "/srv/checklists" {
		t.Errorf("Repo = %q", cfg.HeaderDefaults.Repo)
	}
	if cfg.Scan.StepsWindow != 50 {
		t.Errorf("StepsWindow = %d", cfg.Scan.StepsWindow)
	}
	if cfg.TitleDefault != "Procedure" {
		t.Errorf("TitleDefault = %q", cfg.TitleDefault)
	}
}

func TestLoadConfigFileRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chkforge.yaml")
	if err := os.WriteFile(path, []byte("headr_sheets: [Meta]\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := builder.LoadConfigFile(path); err == nil {
		t.Fatal("want error for unknown config key")
	}
}

func TestDigest(t *testing.T) {
	b := newBuilder(t, builder.Config{})

	md, err := b.Digest(`<html><body><h1>Nightly Sync</h1><ul><li>Prep</li><li>Calibrate</li></ul></body></html>`)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if !strings.Contains(md, "Nightly Sync") || !strings.Contains(md, "Calibrate") {
		t.Errorf("digest = %q", md)
	}

	if _, err := b.Digest("<html><body></body></html>"); !errors.Is(err, builder.ErrEmptyDigest) {
		t.Errorf("err = %v, want ErrEmptyDigest", err)
	}
}

func TestInspect(t *testing.T) {
	b := newBuilder(t, builder.Config{})

	rep, err := b.Inspect(`<!doctype html><html><head><title>Demo Page</title></head>
<body><div id="headerTitle">x</div><div>y</div><input id="runLabel">
<script>let steps = [];</script></body></html>`)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if rep.Title != "Demo Page" {
		t.Errorf("Title = %q", rep.Title)
	}
	if rep.Elements.Scripts != 1 || rep.Elements.Divs != 2 || rep.Elements.Inputs != 1 {
		t.Errorf("Elements = %+v", rep.Elements)
	}
	wantIDs := []string{"headerTitle", "runLabel"}
	if len(rep.IDs) != len(wantIDs) || rep.IDs[0] != wantIDs[0] || rep.IDs[1] != wantIDs[1] {
		t.Errorf("IDs = %v, want %v", rep.IDs, wantIDs)
	}

	byName := map[string]inject.SlotReport{}
	for _, s := range rep.Slots {
		byName[s.Slot] = s
	}
	if r := byName["steps"]; r.Markers != 0 || r.Targets != 1 {
		t.Errorf("steps slot = %+v", r)
	}
	if r := byName["visibleTitle"]; r.Targets != 1 {
		t.Errorf("visibleTitle slot = %+v", r)
	}
}

func TestScaffoldThenBuild(t *testing.T) {
	dir := t.TempDir()
	b := newBuilder(t, builder.Config{})

	if err := b.Scaffold(dir); err != nil {
		t.Fatalf("Scaffold: %v", err)
	}
	for _, p := range []string{
		"specs/example_spec.xlsx",
		"templates/checklist_template.html",
		"chkforge.yaml",
		"README.md",
		"out",
		"journal",
	} {
		if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
			t.Errorf("scaffold missing %s: %v", p, err)
		}
	}

	// The scaffolded pair must build cleanly end to end.
	res, err := b.Build(context.Background(), builder.BuildInput{
		SpecPath:     filepath.Join(dir, "specs", "example_spec.xlsx"),
		TemplatePath: filepath.Join(dir, "templates", "checklist_template.html"),
		OutPath:      filepath.Join(dir, "out", "example.html"),
	})
	if err != nil {
		t.Fatalf("Build on scaffold: %v", err)
	}
	if res.Steps == 0 {
		t.Error("scaffolded spec produced no steps")
	}
	data, _ := os.ReadFile(res.OutPath)
	if strings.Contains(string(data), "{{") {
		t.Errorf("scaffolded template left unresolved markers:\n%s", data)
	}

	// Re-running over a live workspace must not clobber edits.
	cfgPath := filepath.Join(dir, "chkforge.yaml")
	if err := os.WriteFile(cfgPath, []byte("title_default: Edited\n"), 0o644); err != nil {
		t.Fatalf("edit config: %v", err)
	}
	if err := b.Scaffold(dir); err != nil {
		t.Fatalf("re-Scaffold: %v", err)
	}
	data, _ = os.ReadFile(cfgPath)
	if string(data) != "title_default: Edited\n" {
		t.Error("scaffold overwrote an existing file")
	}
}

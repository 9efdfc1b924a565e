package builder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Scaffold creates a ready-to-build working directory at dir: the
// specs/templates/out/journal layout, a starter config, a README, a
// template carrying every slot marker, and an example spec workbook.
// Existing files are left alone, so re-running over a live workspace
// is safe.
func (b *Builder) Scaffold(dir string) error {
	for _, sub := range []string{"specs", "templates", "out", "journal"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("scaffold: %w", err)
		}
	}

	files := []struct {
		path    string
		content string
	}{
		{filepath.Join(dir, "chkforge.yaml"), scaffoldConfig},
		{filepath.Join(dir, "README.md"), scaffoldReadme},
		{filepath.Join(dir, "templates", "checklist_template.html"), scaffoldTemplate},
	}
	for _, f := range files {
		created, err := writeIfAbsent(f.path, []byte(f.content))
		if err != nil {
			return err
		}
		if created {
			b.log.Info("scaffold: created", "path", f.path)
		}
	}

	return b.writeExampleSpec(filepath.Join(dir, "specs", "example_spec.xlsx"))
}

func writeIfAbsent(path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("scaffold: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("scaffold: write %s: %w", path, err)
	}
	return true, nil
}

func (b *Builder) writeExampleSpec(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("scaffold: stat %s: %w", path, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	var err error
	set := func(sheet, ref string, v any) {
		if err == nil {
			err = f.SetCellValue(sheet, ref, v)
		}
	}

	if err = f.SetSheetName("Sheet1", "META"); err != nil {
		return fmt.Errorf("scaffold: example spec: %w", err)
	}
	if _, err = f.NewSheet("Steps"); err != nil {
		return fmt.Errorf("scaffold: example spec: %w", err)
	}

	set("META", "A1", "Field")
	set("META", "B1", "Value")
	set("META", "A2", "SOP Name")
	set("META", "B2", "Example Procedure")
	set("META", "A3", "SOP ID")
	set("META", "B3", "SOP-0001")
	set("META", "A4", "Entity")
	set("META", "B4", "Example Co")
	set("META", "A5", "Run Label")
	set("META", "B5", "First Run")

	set("Steps", "A1", "Order")
	set("Steps", "B1", "Title")
	set("Steps", "C1", "Command")
	set("Steps", "D1", "Reminder")
	set("Steps", "E1", "Done")
	set("Steps", "A2", 1)
	set("Steps", "B2", "Collect inputs")
	set("Steps", "C2", "Gather the spec workbook and the HTML template")
	set("Steps", "D2", "specs/ and templates/ hold the scaffolded examples")
	set("Steps", "E2", "n")
	set("Steps", "A3", 2)
	set("Steps", "B3", "Run the build")
	set("Steps", "C3", "chkforge build -spec specs/example_spec.xlsx -template templates/checklist_template.html")
	set("Steps", "D3", "the output lands beside the spec unless -out says otherwise")
	set("Steps", "E3", "n")
	set("Steps", "A4", 3)
	set("Steps", "B4", "Review the output")
	set("Steps", "C4", "Open the generated HTML in a browser")
	set("Steps", "D4", "")
	set("Steps", "E4", "n")
	if err != nil {
		return fmt.Errorf("scaffold: example spec: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("scaffold: example spec: %w", err)
	}
	b.log.Info("scaffold: created", "path", path)
	return nil
}

const scaffoldConfig = `# chkforge configuration. Every key is optional; the values shown are
# the defaults.

header_sheets: [Header, META, Meta]
steps_sheets: [Steps, Checklist, STEPS]

header_defaults:
  repo: /workspaces/SOP_Build
  web_root: /SOP_Stage
  img_folder: ../outputs/images/<SOP_ID>
  template_tag: v8 – injected

# Declared placeholder keys, injected wherever the template carries
# {{KEY}}.
# extra_meta:
#   APP_TITLE_VISIBLE: Example Procedure (visible)

# Extra column-name spellings, merged into the built-in vocabularies.
# header_synonyms:
#   id: [doc id]
# step_synonyms:
#   command: [action]

scan:
  header_window: 15
  steps_window: 30
  min_hits: 3
  header_blank_streak: 5
  steps_blank_streak: 10

title_default: Checklist
require_info: false
raw_scalars: false
`

const scaffoldReadme = `# chkforge workspace

- specs/      spec workbooks (.xlsx) with a META sheet and a Steps sheet
- templates/  HTML templates carrying {{...}} markers or a "let steps = [...]" block
- out/        built checklists (when -out points here)
- journal/    the build journal database

Build the example:

    chkforge build -spec specs/example_spec.xlsx -template templates/checklist_template.html

Inspect a template before wiring it up:

    chkforge inspect -template templates/checklist_template.html
`

const scaffoldTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{APP_TITLE}}</title>
  <style>
    body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 48rem; }
    #headerTitle { font-size: 1.5rem; font-weight: 600; }
    #meta input { display: block; margin: 0.25rem 0; width: 100%; }
    #checklist { list-style: none; padding: 0; }
    #checklist li { border-bottom: 1px solid #ddd; padding: 0.5rem 0; }
    #checklist pre { background: #f6f6f6; padding: 0.5rem; overflow-x: auto; }
    #checklist em { color: #666; }
  </style>
</head>
<body>
  <header>
    <div id="headerTitle">{{APP_TITLE_VISIBLE}}</div>
    <span id="sopTag">{{META_SOP_DEFAULT}}</span>
  </header>
  <section id="meta">
    <input id="metaRepo" value="{{META_REPO}}" readonly>
    <input id="metaEntity" value="{{META_ENTITY}}" readonly>
    <input id="metaWebRoot" value="{{META_WEBROOT}}" readonly>
    <input id="metaImgFolder" value="{{META_IMG_FOLDER_DEF}}" readonly>
    <input id="runLabel" value="{{RUN_LABEL_DEFAULT}}">
  </section>
  <ul id="checklist"></ul>
  <script>
let sopInfo = {};
let steps = {{STEPS_JSON}};

function render() {
  const root = document.getElementById("checklist");
  for (const step of steps) {
    const li = document.createElement("li");
    const box = document.createElement("input");
    box.type = "checkbox";
    box.id = step.id;
    box.checked = step.done;
    const label = document.createElement("label");
    label.htmlFor = step.id;
    label.textContent = step.order + ". " + step.title;
    li.appendChild(box);
    li.appendChild(label);
    if (step.command) {
      const pre = document.createElement("pre");
      pre.textContent = step.command;
      li.appendChild(pre);
    }
    if (step.reminder) {
      const em = document.createElement("em");
      em.textContent = step.reminder;
      li.appendChild(em);
    }
    root.appendChild(li);
  }
}
document.addEventListener("DOMContentLoaded", render);
  </script>
</body>
</html>
`

package sheet

import "testing"

func TestExtractHeaderPairedColumns(t *testing.T) {
	rs := &RawSheet{
		Name: "Header",
		Rows: [][]string{
			{"Field", "Value"},
			{"SOP ID", "X-101"},
			{"Run Label", "Batch7"},
		},
	}
	got := ExtractHeader(rs, HeaderOptions{})

	if got["id"] != "X-101" {
		t.Errorf("id = %q, want X-101", got["id"])
	}
	if got["runLabel"] != "Batch7" {
		t.Errorf("runLabel = %q, want Batch7", got["runLabel"])
	}
	if len(got) != 2 {
		t.Errorf("got %d entries, want 2: %v", len(got), got)
	}
}

func TestExtractHeaderPairedColumnsExplicitLayout(t *testing.T) {
	// Key/Value columns announced out of position; column A holds noise.
	rs := &RawSheet{
		Name: "META",
		Rows: [][]string{
			{"#", "Key", "Value"},
			{"1", "Repo", "/srv/build"},
			{"2", "Entity", "Ops"},
			{"3", "APP_OWNER", "me"},
		},
	}
	got := ExtractHeader(rs, HeaderOptions{})

	if got["repo"] != "/srv/build" {
		t.Errorf("repo = %q, want /srv/build", got["repo"])
	}
	if got["entity"] != "Ops" {
		t.Errorf("entity = %q, want Ops", got["entity"])
	}
	// Unrecognized keys keep their raw spelling for the extras mechanism.
	if got["APP_OWNER"] != "me" {
		t.Errorf("APP_OWNER = %q, want raw passthrough", got["APP_OWNER"])
	}
}

func TestExtractHeaderBlankStreakStops(t *testing.T) {
	rows := [][]string{{"Key", "Value"}}
	rows = append(rows, []string{"Name", "First"})
	for i := 0; i < 5; i++ {
		rows = append(rows, []string{"", ""})
	}
	rows = append(rows, []string{"Entity", "Lost"})

	got := ExtractHeader(&RawSheet{Name: "Header", Rows: rows}, HeaderOptions{})

	if got["name"] != "First" {
		t.Errorf("name = %q, want First", got["name"])
	}
	if _, ok := got["entity"]; ok {
		t.Error("entry after a 5-row blank streak must not be read")
	}
}

func TestExtractHeaderLaterPairWins(t *testing.T) {
	rs := &RawSheet{
		Name: "Header",
		Rows: [][]string{
			{"Key", "Value"},
			{"SOP ID", "old"},
			{"sop_id", "new"},
		},
	}
	got := ExtractHeader(rs, HeaderOptions{})

	if got["id"] != "new" {
		t.Errorf("id = %q, later synonym row must win", got["id"])
	}
}

func TestExtractHeaderRowTransposed(t *testing.T) {
	rs := &RawSheet{
		Name: "Header",
		Rows: [][]string{
			{"Build Spec v3", ""},
			{"SOP ID", "SOP Name", "Entity", "Run Label"},
			{"X-7", "Nightly Sync", "Ops", ""},
		},
	}
	got := ExtractHeader(rs, HeaderOptions{})

	if got["id"] != "X-7" {
		t.Errorf("id = %q, want X-7", got["id"])
	}
	if got["name"] != "Nightly Sync" {
		t.Errorf("name = %q, want Nightly Sync", got["name"])
	}
	if got["entity"] != "Ops" {
		t.Errorf("entity = %q, want Ops", got["entity"])
	}
	// Blank values are omitted, not stored as empty strings.
	if _, ok := got["runLabel"]; ok {
		t.Error("blank row-transposed value must be omitted")
	}
}

func TestExtractHeaderMergePrecedence(t *testing.T) {
	// A sheet matching both layouts: the paired read sees (key, value)
	// rows, the transposed read finds a field row further down. The
	// transposed value must win the id collision.
	rs := &RawSheet{
		Name: "Header",
		Rows: [][]string{
			{"Key", "Value"},
			{"SOP ID", "from-pairs"},
			{"SOP ID", "SOP Name", "Entity"},
			{"X-9", "Transposed", "Ops"},
		},
	}
	got := ExtractHeader(rs, HeaderOptions{})

	if got["id"] != "X-9" {
		t.Errorf("id = %q, row-transposed value must win", got["id"])
	}
	if got["name"] != "Transposed" {
		t.Errorf("name = %q, want Transposed", got["name"])
	}
}

func TestExtractHeaderEmptySheet(t *testing.T) {
	got := ExtractHeader(&RawSheet{Name: "Header"}, HeaderOptions{})
	if len(got) != 0 {
		t.Fatalf("empty sheet must extract nothing, got %v", got)
	}
}

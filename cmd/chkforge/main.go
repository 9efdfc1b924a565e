// Command chkforge builds interactive checklist pages from spreadsheet
// specs and HTML templates.
//
// Usage:
//
//	chkforge build -spec spec.xlsx -template template.html [-out out.html]
//	chkforge inspect -template template.html [-json]
//	chkforge init [dir]                    # scaffold a working directory
//	chkforge digest -in built.html         # markdown summary of a build
//	chkforge journal -db journal/builds.db # recent builds
//	chkforge serve -addr :8787             # preview/API server
//	chkforge mcp                           # MCP tool server on stdio
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/chkforge/chkforge/builder"
	"github.com/chkforge/chkforge/dbopen"
	"github.com/chkforge/chkforge/journal"
)

const appVersion = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "build":
		err = cmdBuild(args)
	case "inspect":
		err = cmdInspect(args)
	case "init":
		err = cmdInit(args)
	case "digest":
		err = cmdDigest(args)
	case "journal":
		err = cmdJournal(args)
	case "serve":
		err = cmdServe(args)
	case "mcp":
		err = cmdMCP(args)
	case "help", "-h", "-help", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "chkforge: unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("chkforge: fatal", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `chkforge — checklist builder

commands:
  build    -spec <file.xlsx> -template <file.html> [-out <file.html>] [-config <yaml>] [-journal <db>]
  inspect  -template <file.html> [-json] [-config <yaml>]
  init     [dir]
  digest   -in <built.html> [-out <digest.md>]
  journal  -db <file.db> [-limit N]
  serve    [-addr :8787] [-config <yaml>] [-journal <db>] [-dir <out>]
  mcp      [-config <yaml>] [-journal <db>]

every command accepts -log-level (debug, info, warn, error).
`)
}

// newLogger builds the JSON stderr logger every command shares.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// newBuilder loads the optional config file and constructs the Builder.
func newBuilder(configPath string, logger *slog.Logger) (*builder.Builder, error) {
	cfg := builder.Config{}
	if configPath != "" {
		loaded, err := builder.LoadConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	return builder.New(cfg, logger)
}

// openJournal opens (creating if needed) the journal database and the
// async writer on top of it. The caller closes both, journal first.
func openJournal(path string) (*journal.Journal, *sql.DB, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(journal.Schema))
	if err != nil {
		return nil, nil, fmt.Errorf("journal db: %w", err)
	}
	return journal.New(db), db, nil
}

func cmdBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	spec := fs.String("spec", "", "path to the spec workbook (.xlsx)")
	template := fs.String("template", "", "path to the HTML template")
	out := fs.String("out", "", "output path (default: <spec stem>_checklist_<stamp>.html beside the spec)")
	configPath := fs.String("config", "", "path to chkforge.yaml")
	journalPath := fs.String("journal", "", "record the build in this journal database")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Parse(args)

	if *spec == "" || *template == "" {
		fmt.Fprintln(os.Stderr, "usage: chkforge build -spec <file.xlsx> -template <file.html> [-out <file.html>]")
		os.Exit(2)
	}

	logger := newLogger(*logLevel)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := newBuilder(*configPath, logger)
	if err != nil {
		return err
	}
	if *journalPath != "" {
		j, db, err := openJournal(*journalPath)
		if err != nil {
			return err
		}
		defer db.Close()
		defer j.Close()
		b.AttachJournal(j)
	}

	res, err := b.Build(ctx, builder.BuildInput{
		SpecPath:     *spec,
		TemplatePath: *template,
		OutPath:      *out,
	})
	if err != nil {
		return err
	}
	fmt.Println(res.OutPath)
	return nil
}

func cmdInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	template := fs.String("template", "", "path to the HTML template")
	asJSON := fs.Bool("json", false, "emit the report as JSON")
	configPath := fs.String("config", "", "path to chkforge.yaml")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Parse(args)

	if *template == "" {
		fmt.Fprintln(os.Stderr, "usage: chkforge inspect -template <file.html> [-json]")
		os.Exit(2)
	}

	b, err := newBuilder(*configPath, newLogger(*logLevel))
	if err != nil {
		return err
	}
	data, err := os.ReadFile(*template)
	if err != nil {
		return err
	}
	rep, err := b.Inspect(string(data))
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	if rep.Title != "" {
		fmt.Printf("title: %s\n", rep.Title)
	}
	fmt.Printf("elements: %d script, %d div, %d input\n",
		rep.Elements.Scripts, rep.Elements.Divs, rep.Elements.Inputs)
	if len(rep.IDs) > 0 {
		fmt.Printf("ids: %v\n", rep.IDs)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLOT\tMARKERS\tTARGETS\tREQUIRED")
	for _, s := range rep.Slots {
		fmt.Fprintf(w, "%s\t%d\t%d\t%v\n", s.Slot, s.Markers, s.Targets, s.Required)
	}
	return w.Flush()
}

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Parse(args)

	dir := fs.Arg(0)
	if dir == "" {
		dir = "."
	}

	b, err := builder.New(builder.Config{}, newLogger(*logLevel))
	if err != nil {
		return err
	}
	if err := b.Scaffold(dir); err != nil {
		return err
	}
	fmt.Printf("scaffolded %s\n", dir)
	return nil
}

func cmdDigest(args []string) error {
	fs := flag.NewFlagSet("digest", flag.ExitOnError)
	in := fs.String("in", "", "path to a built checklist HTML file")
	out := fs.String("out", "", "write the markdown here instead of stdout")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Parse(args)

	if *in == "" {
		fmt.Fprintln(os.Stderr, "usage: chkforge digest -in <built.html> [-out <digest.md>]")
		os.Exit(2)
	}

	b, err := builder.New(builder.Config{}, newLogger(*logLevel))
	if err != nil {
		return err
	}
	data, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	md, err := b.Digest(string(data))
	if err != nil {
		return err
	}

	if *out != "" {
		return os.WriteFile(*out, []byte(md+"\n"), 0o644)
	}
	fmt.Println(md)
	return nil
}

func cmdJournal(args []string) error {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	dbPath := fs.String("db", "", "path to the journal database")
	limit := fs.Int("limit", 20, "max rows")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Parse(args)
	_ = logLevel

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: chkforge journal -db <file.db> [-limit N]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	j, db, err := openJournal(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	defer j.Close()

	records, err := j.Recent(ctx, *limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSTATUS\tSTEPS\tSPEC\tOUT\tERROR")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.Status, r.Steps, r.SpecPath, r.OutPath, r.Error)
	}
	return w.Flush()
}

func cmdMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", "", "path to chkforge.yaml")
	journalPath := fs.String("journal", "", "record builds in this journal database")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Parse(args)

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := newBuilder(*configPath, logger)
	if err != nil {
		return err
	}
	if *journalPath != "" {
		j, db, err := openJournal(*journalPath)
		if err != nil {
			return err
		}
		defer db.Close()
		defer j.Close()
		b.AttachJournal(j)
	}

	srv := mcp.NewServer(&mcp.Implementation{Name: "chkforge", Version: appVersion}, nil)
	b.RegisterMCP(srv)

	logger.Info("mcp server on stdio")
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

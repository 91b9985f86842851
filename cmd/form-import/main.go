package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/a3tai/mcp-lab-forms/internal/form"
	"github.com/a3tai/mcp-lab-forms/internal/log"
	"github.com/a3tai/mcp-lab-forms/internal/pdf"
	"github.com/a3tai/mcp-lab-forms/internal/pdf/importer"
	"github.com/a3tai/mcp-lab-forms/internal/store"
)

type options struct {
	dataDir string
	id      string
	title   string
	format  string
	save    bool
	debug   bool
	maxSize int64
}

func main() {
	opts, pdfPath, err := parseArgs(os.Args[1:], os.Stderr)
	if err == flag.ErrHelp {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage(os.Stderr)
		os.Exit(1)
	}

	log.SetOutput(os.Stderr)
	if opts.debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	tpl, result, err := importTemplate(pdfPath, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error importing form: %v\n", err)
		os.Exit(1)
	}

	if opts.save {
		repo, err := store.NewFileRepository(opts.dataDir)
		if err == nil {
			err = repo.Create(context.Background(), tpl)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error saving template: %v\n", err)
			os.Exit(1)
		}
	}

	if err := writeResult(os.Stdout, opts.format, tpl, result); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
}

func parseArgs(args []string, stderr io.Writer) (options, string, error) {
	var opts options
	fs := flag.NewFlagSet("form-import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.dataDir, "data-dir", "./data", "Data directory templates are saved under")
	fs.StringVar(&opts.id, "id", "", "Template id (default: file name without extension)")
	fs.StringVar(&opts.title, "title", "", "Template title (default: file name)")
	fs.StringVar(&opts.format, "format", "text", "Output format: text, json")
	fs.BoolVar(&opts.save, "save", false, "Save the template into the data directory")
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	fs.Int64Var(&opts.maxSize, "max-file-size", 100*1024*1024, "Maximum PDF size in bytes")
	fs.Usage = func() { printUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return opts, "", err
	}
	if fs.NArg() != 1 {
		return opts, "", fmt.Errorf("exactly one PDF file path is required")
	}
	if opts.format != "text" && opts.format != "json" {
		return opts, "", fmt.Errorf("unknown format %q", opts.format)
	}

	pdfPath := fs.Arg(0)
	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	if opts.id == "" {
		opts.id = base
	}
	if opts.title == "" {
		opts.title = base
	}
	if !store.ValidDocumentID(opts.id) {
		return opts, "", fmt.Errorf("template id %q may only contain letters, digits, '.', '_' and '-'", opts.id)
	}
	return opts, pdfPath, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "form-import - Create a form template from the AcroForm fields of a PDF")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  form-import [OPTIONS] <pdf_file>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "OPTIONS:")
	fmt.Fprintln(w, "  --data-dir        Data directory templates are saved under (default ./data)")
	fmt.Fprintln(w, "  --id              Template id (default: file name without extension)")
	fmt.Fprintln(w, "  --title           Template title (default: file name)")
	fmt.Fprintln(w, "  --format          Output format: text (default), json")
	fmt.Fprintln(w, "  --save            Save the template into the data directory")
	fmt.Fprintln(w, "  --max-file-size   Maximum PDF size in bytes")
	fmt.Fprintln(w, "  --debug           Enable debug logging")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "EXAMPLES:")
	fmt.Fprintln(w, "  form-import data/titration.pdf")
	fmt.Fprintln(w, "  form-import --save --title \"Titration Lab\" data/titration.pdf")
}

// importTemplate validates the PDF and builds a template from its widgets. The
// template's pdfUrl is the path relative to the data directory when the file lives
// inside it.
func importTemplate(pdfPath string, opts options) (*form.Template, *importer.Result, error) {
	abs, err := filepath.Abs(pdfPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	validator := pdf.NewValidator(opts.maxSize)
	if err := validator.ValidateFile(abs); err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, nil, err
	}

	result, err := importer.New().ImportBytes(data)
	if err != nil {
		return nil, nil, err
	}
	if len(result.Pages) == 0 {
		return nil, nil, fmt.Errorf("%s has no pages", pdfPath)
	}

	pdfURL := abs
	if dataDir, err := filepath.Abs(opts.dataDir); err == nil {
		if rel, err := filepath.Rel(dataDir, abs); err == nil && !strings.HasPrefix(rel, "..") {
			pdfURL = filepath.ToSlash(rel)
		}
	}

	tpl := &form.Template{
		ID:         opts.id,
		Title:      opts.title,
		PDFURL:     pdfURL,
		PageCount:  len(result.Pages),
		Dimensions: result.Pages[0],
		Fields:     result.Fields,
	}
	if err := tpl.Validate(); err != nil {
		return nil, nil, err
	}
	return tpl, result, nil
}

func writeResult(w io.Writer, format string, tpl *form.Template, result *importer.Result) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Template store.WireTemplate `json:"template"`
			Skipped  []string           `json:"skipped,omitempty"`
		}{store.ToWire(tpl), result.Skipped})
	}

	fmt.Fprintf(w, "Template: %s (%s)\n", tpl.Title, tpl.ID)
	fmt.Fprintf(w, "PDF:      %s\n", tpl.PDFURL)
	fmt.Fprintf(w, "Pages:    %d (%.0fx%.0f pt)\n", tpl.PageCount, tpl.Dimensions.Width, tpl.Dimensions.Height)
	fmt.Fprintf(w, "Fields:   %d\n", len(tpl.Fields))
	for _, f := range tpl.Fields {
		req := ""
		if f.Required {
			req = " required"
		}
		fmt.Fprintf(w, "  p%d %-10s %-24q at (%.1f, %.1f) %.1fx%.1f%s\n",
			f.Page, f.Type, f.Label, f.X, f.Y, f.Width, f.Height, req)
	}
	for _, s := range result.Skipped {
		fmt.Fprintf(w, "  skipped: %s\n", s)
	}
	return nil
}

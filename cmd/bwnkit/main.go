// bwnkit inspects, edits and produces .bwn robot-script files and their
// .bwnp containers.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/pflag"

	"github.com/robopat/bwnkit/bwnp"
	"github.com/robopat/bwnkit/export"
	"github.com/robopat/bwnkit/javaio"
	"github.com/robopat/bwnkit/patch"
	"github.com/robopat/bwnkit/script"
)

const usage = `bwnkit works with .bwn robot-script files and .bwnp containers.

Usage:
  bwnkit <command> [flags] [args]

Commands:
  dump     decode a .bwn file and print its object graph
  patch    rewrite strings inside a .bwn file or .bwnp container
  compile  build a .bwn file from a YAML script
  export   render a script as Markdown or HTML
  pack     package a .bwn file and images into a .bwnp container
  unpack   extract a .bwnp container
  inspect  list .bwnp entries with sizes and digests

Run "bwnkit <command> --help" for command flags.
`

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := run(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		fmt.Fprint(os.Stderr, usage)
		if len(args) == 0 {
			return fmt.Errorf("command required")
		}
		return nil
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "dump":
		return runDump(rest)
	case "patch":
		return runPatch(rest)
	case "compile":
		return runCompile(rest)
	case "export":
		return runExport(rest)
	case "pack":
		return runPack(rest)
	case "unpack":
		return runUnpack(rest)
	case "inspect":
		return runInspect(rest)
	default:
		return fmt.Errorf("unknown command %q, run \"bwnkit help\"", cmd)
	}
}

func runDump(args []string) error {
	flags := pflag.NewFlagSet("dump", pflag.ContinueOnError)
	raw := flags.Bool("raw", false, "print the decoded graph structs verbatim")
	asJSON := flags.Bool("json", false, "print the graph as JSON")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: bwnkit dump [--raw|--json] <file.bwn>")
	}
	data, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		return err
	}

	dec := javaio.NewDecoder(data)
	root, err := dec.Decode()
	if err != nil {
		return err
	}
	for _, h := range dec.Unresolved() {
		slog.Warn("unresolved reference", "handle", fmt.Sprintf("%#x", h))
	}
	if dec.More() {
		slog.Warn("trailing bytes after first element", "offset", dec.Offset(), "size", len(data))
	}

	if *raw {
		spew.Fdump(os.Stdout, root)
		return nil
	}
	if *asJSON {
		out, err := json.MarshalIndent(graphJSON(root, make(map[javaio.Value]bool)), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}
	fmt.Printf("%s: %d bytes, %d handles\n", flags.Arg(0), len(data), dec.HandleCount())
	printSummary(os.Stdout, root, 0, make(map[javaio.Value]bool))
	return nil
}

func runPatch(args []string) error {
	flags := pflag.NewFlagSet("patch", pflag.ContinueOnError)
	specPath := flags.String("spec", "", "JSON patch spec (comments allowed)")
	projectName := flags.String("project-name", "", "replace the project name")
	replaces := flags.StringArray("replace", nil, "replace a string value, as old=new (repeatable)")
	output := flags.StringP("output", "o", "", "output file (required)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 || *output == "" {
		return fmt.Errorf("usage: bwnkit patch [flags] -o <out.bwn> <file.bwn>")
	}

	spec := &patch.Spec{}
	if *specPath != "" {
		raw, err := os.ReadFile(*specPath)
		if err != nil {
			return err
		}
		if spec, err = patch.ParseSpec(raw); err != nil {
			return err
		}
	}
	if *projectName != "" {
		spec.ProjectName = *projectName
	}
	for _, r := range *replaces {
		oldValue, newValue, ok := strings.Cut(r, "=")
		if !ok {
			return fmt.Errorf("--replace wants old=new, got %q", r)
		}
		if spec.Replacements == nil {
			spec.Replacements = make(map[string]string)
		}
		spec.Replacements[oldValue] = newValue
	}

	data, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		return err
	}

	// A .bwnp container gets its inner script patched and re-packed,
	// following the project rename into the entry names.
	if bytes.HasPrefix(data, []byte("PK")) {
		var rewrites int
		out, err := bwnp.Rewrite(data, func(a *bwnp.Archive) error {
			patched, n, err := applyPatch(a.Script, spec)
			if err != nil {
				return err
			}
			a.Script = patched
			rewrites = n
			if spec.ProjectName != "" {
				a.ProjectName = spec.ProjectName
			}
			return nil
		})
		if err != nil {
			return err
		}
		slog.Info("patched", "file", flags.Arg(0), "rewrites", rewrites)
		return os.WriteFile(*output, out, 0o644)
	}

	patched, n, err := applyPatch(data, spec)
	if err != nil {
		return err
	}
	slog.Info("patched", "file", flags.Arg(0), "rewrites", n)
	return os.WriteFile(*output, patched, 0o644)
}

func applyPatch(data []byte, spec *patch.Spec) ([]byte, int, error) {
	p := patch.New(data)
	n, err := p.Apply(spec)
	if err != nil {
		return nil, 0, err
	}
	// The splice math must leave a decodable stream behind.
	if _, err := javaio.Decode(p.Bytes()); err != nil {
		return nil, 0, fmt.Errorf("patched stream no longer decodes: %w", err)
	}
	return p.Bytes(), n, nil
}

func runCompile(args []string) error {
	flags := pflag.NewFlagSet("compile", pflag.ContinueOnError)
	output := flags.StringP("output", "o", "", "output .bwn file (default: input name with .bwn)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: bwnkit compile [-o out.bwn] <script.yaml>")
	}
	raw, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		return err
	}
	s, err := script.LoadYAML(raw)
	if err != nil {
		return err
	}
	data, err := script.Compile(s)
	if err != nil {
		return err
	}
	out := *output
	if out == "" {
		out = replaceExt(flags.Arg(0), ".bwn")
	}
	slog.Info("compiled", "project", s.ProjectName, "tabs", len(s.Tabs), "bytes", len(data))
	return os.WriteFile(out, data, 0o644)
}

func runExport(args []string) error {
	flags := pflag.NewFlagSet("export", pflag.ContinueOnError)
	format := flags.String("format", "markdown", "output format: markdown or html")
	output := flags.StringP("output", "o", "", "output file (default: stdout)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: bwnkit export [--format markdown|html] [-o out] <script.yaml|file.bwn>")
	}
	raw, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		return err
	}

	var s *script.Script
	if bytes.HasPrefix(raw, []byte{0xac, 0xed}) {
		s, err = script.Parse(raw)
	} else {
		s, err = script.LoadYAML(raw)
	}
	if err != nil {
		return err
	}

	var rendered string
	switch *format {
	case "markdown", "md":
		rendered = export.Markdown(s)
	case "html":
		if rendered, err = export.HTML(s); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q", *format)
	}

	if *output == "" {
		fmt.Print(rendered)
		return nil
	}
	return os.WriteFile(*output, []byte(rendered), 0o644)
}

func runPack(args []string) error {
	flags := pflag.NewFlagSet("pack", pflag.ContinueOnError)
	output := flags.StringP("output", "o", "", "output .bwnp file (required)")
	project := flags.String("project", "", "project name (default: read from the .bwn file)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() < 1 || *output == "" {
		return fmt.Errorf("usage: bwnkit pack -o <out.bwnp> [--project name] <file.bwn> [images...]")
	}
	data, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		return err
	}

	name := *project
	if name == "" {
		if name = patch.New(data).ProjectName(); name == "" {
			return fmt.Errorf("no project name in %s, pass --project", flags.Arg(0))
		}
	}

	a := &bwnp.Archive{ProjectName: name, Script: data}
	for i, imgPath := range flags.Args()[1:] {
		img, err := os.ReadFile(imgPath)
		if err != nil {
			return err
		}
		if a.Images == nil {
			a.Images = make(map[string][]byte)
		}
		a.Images[fmt.Sprintf("bwn-%d.png", i+1)] = img
	}

	f, err := os.Create(*output)
	if err != nil {
		return err
	}
	if err := bwnp.Pack(f, a); err != nil {
		f.Close()
		return err
	}
	slog.Info("packed", "project", name, "images", len(a.Images), "output", *output)
	return f.Close()
}

func runUnpack(args []string) error {
	flags := pflag.NewFlagSet("unpack", pflag.ContinueOnError)
	dir := flags.StringP("dir", "d", ".", "output directory")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: bwnkit unpack [-d dir] <file.bwnp>")
	}
	data, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		return err
	}
	a, err := bwnp.Unpack(data)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*dir, 0o755); err != nil {
		return err
	}

	// The project name can carry characters that are awkward in file
	// names, so the script always lands as main.bwn.
	if err := os.WriteFile(filepath.Join(*dir, "main.bwn"), a.Script, 0o644); err != nil {
		return err
	}
	for name, img := range a.Images {
		if err := os.WriteFile(filepath.Join(*dir, name), img, 0o644); err != nil {
			return err
		}
	}
	slog.Info("unpacked", "project", a.ProjectName, "images", len(a.Images), "dir", *dir)
	return nil
}

func runInspect(args []string) error {
	flags := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: bwnkit inspect <file.bwnp>")
	}
	data, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		return err
	}
	entries, err := bwnp.Inspect(data)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tPACKED\tDIGEST")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", e.Name, e.Size, e.CompressedSize, e.Digest)
	}
	return w.Flush()
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

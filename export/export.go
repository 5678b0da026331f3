// Package export renders a script model as a human-readable procedure
// document: Markdown for review and version control, HTML for sharing
// with people who will rebuild the steps by hand.
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/robopat/bwnkit/script"
)

// displayNames maps model command types to step headings. Unknown types
// fall back to the raw type name.
var displayNames = map[string]string{
	"comment":            "Comment",
	"gototab":            "Go to tab",
	"openflow":           "Open flow",
	"closeflow":          "Close flow",
	"openloop":           "Open loop",
	"try":                "Try",
	"catch":              "Catch",
	"endtry":             "End try",
	"break":              "Break",
	"switchwindow":       "Switch window",
	"sendkeys":           "Send keys",
	"paste":              "Paste",
	"type":               "Type",
	"find":               "Find",
	"waitforscreencalms": "Wait for screen to settle",
	"scriptexit":         "Exit script",
	"sendmailv2":         "Send mail",
	"openchrome":         "Open Chrome",
	"click":              "Click",
	"inputtext":          "Input text",
	"inputpassword":      "Input password",
	"select":             "Select",
	"gettext":            "Get text",
	"getattribute":       "Get attribute",
	"executescript":      "Execute JavaScript",
	"closetab":           "Close tab",
	"navigateback":       "Navigate back",
	"check":              "Check",
}

func stepName(cmd script.Command) string {
	if name, ok := displayNames[cmd.Type]; ok {
		return name
	}
	if cmd.Type != "" {
		return cmd.Type
	}
	return "Comment"
}

// Markdown renders the script as a Markdown procedure document: one
// section per tab, one numbered step per command.
func Markdown(s *script.Script) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.ProjectName)
	fmt.Fprintf(&b, "Procedure document for the %q script.\n\n", s.ProjectName)

	for _, tab := range s.Tabs {
		fmt.Fprintf(&b, "## Tab: %s\n\n", tab.Title)
		if len(tab.Commands) == 0 {
			b.WriteString("No steps.\n\n")
			continue
		}
		for i, cmd := range tab.Commands {
			fmt.Fprintf(&b, "### Step %d: %s\n\n", i+1, stepName(cmd))
			if cmd.Comment != "" {
				fmt.Fprintf(&b, "**Description**: %s\n\n", cmd.Comment)
			}
			if !cmd.Enabled {
				b.WriteString("*This step is disabled.*\n\n")
			}
			writeFields(&b, cmd.Fields)
		}
		b.WriteString("---\n\n")
	}

	b.WriteString("## Notes\n\n")
	b.WriteString("- Adjust selectors and wait times to the target environment.\n")
	b.WriteString("- Set variables to appropriate values before running.\n")
	return b.String()
}

func writeFields(b *strings.Builder, fields map[string]any) {
	if len(fields) == 0 {
		return
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteString("**Settings**:\n\n")
	for _, name := range names {
		fmt.Fprintf(b, "- **%s**: `%v`\n", name, fields[name])
	}
	b.WriteString("\n")
}

// markdown is initialized once and reused; the configured goldmark
// instance is safe to share across conversions.
var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

func markdownRenderer() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return markdownInstance
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 900px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
main { background: white; padding: 30px; border-radius: 10px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
h1 { color: #2c3e50; border-bottom: 3px solid #3498db; padding-bottom: 10px; }
h2 { color: #34495e; margin-top: 30px; }
h3 { color: #2980b9; background: #ecf0f1; padding: 10px; border-radius: 5px; }
code { background: #2c3e50; color: #ecf0f1; padding: 2px 6px; border-radius: 3px; }
hr { border: none; border-top: 1px solid #eee; margin: 20px 0; }
</style>
</head>
<body>
<main>
{{.Body}}</main>
</body>
</html>
`))

// HTML renders the script as a standalone HTML page: the Markdown
// document converted to HTML and wrapped in a styled shell.
func HTML(s *script.Script) (string, error) {
	var body bytes.Buffer
	if err := markdownRenderer().Convert([]byte(Markdown(s)), &body); err != nil {
		return "", fmt.Errorf("export: render markdown: %w", err)
	}
	var page bytes.Buffer
	err := pageTemplate.Execute(&page, struct {
		Title string
		Body  template.HTML
	}{
		Title: s.ProjectName,
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return "", fmt.Errorf("export: render page: %w", err)
	}
	return page.String(), nil
}

package docs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"text/template"

	"relaybot/internal/plugin"
)

// DefaultTemplate is used when no template file exists.
const DefaultTemplate = `# Commands

Commands are sent in a private message, after the control character in a
channel (".ping"), or addressed to the bot ("relaybot: ping"). Chain them with
"|"; only the last result is shown.

{{.CommandSections}}`

// Sections renders one markdown section per plugin, in resolution order.
// A command shadowed by an earlier plugin is marked as such.
func Sections(w io.Writer, cmds []plugin.Resolution) error {
	seen := make(map[string]string)
	current := ""
	for _, res := range cmds {
		name := res.Plugin.Name()
		if name != current {
			if current != "" {
				fmt.Fprintln(w)
			}
			current = name
			fmt.Fprintf(w, "### %s\n\n", name)
		}

		d := res.Command
		line := fmt.Sprintf("- **%s**", d.Name)
		if d.Description != "" {
			line += " - " + d.Description
		}
		if d.Usage != "" {
			line += fmt.Sprintf(" (`%s`)", d.Usage)
		}
		if owner, ok := seen[d.Name]; ok {
			line += fmt.Sprintf(" *shadowed by %s*", owner)
		} else {
			seen[d.Name] = name
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// Render executes tmpl with the command sections.
func Render(w io.Writer, tmpl string, cmds []plugin.Resolution) error {
	t, err := template.New("readme").Parse(tmpl)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Sections(&buf, cmds); err != nil {
		return err
	}
	return t.Execute(w, struct{ CommandSections string }{buf.String()})
}

// UpdateReadme writes outPath from tmplPath, falling back to DefaultTemplate
// when tmplPath does not exist.
func UpdateReadme(tmplPath, outPath string, cmds []plugin.Resolution) error {
	tmpl := DefaultTemplate
	data, err := os.ReadFile(tmplPath)
	switch {
	case err == nil:
		tmpl = string(data)
	case !os.IsNotExist(err):
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := Render(f, tmpl, cmds); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

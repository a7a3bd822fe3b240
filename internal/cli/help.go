// Package cli holds the styled terminal output shared by the command-line
// tools: kong help, version and error lines, and report rendering.
package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
)

// Description is shown under the title in help output.
const Description = "Live microphone quality meter and vocal report renderer"

// StyledHelpPrinter creates a custom help printer with Lipgloss styling
func StyledHelpPrinter(_ kong.HelpOptions) kong.HelpPrinter {
	return func(_ kong.HelpOptions, ctx *kong.Context) error {
		var sb strings.Builder

		node := ctx.Model.Node
		if sel := ctx.Selected(); sel != nil {
			node = sel
		}

		sb.WriteString(TitleStyle.Render("SongLab micmeter"))
		sb.WriteString("\n")
		desc := Description
		if node != ctx.Model.Node && node.Help != "" {
			desc = node.Help
		}
		sb.WriteString(KeyStyle.Italic(true).Render(desc))
		sb.WriteString("\n")

		sb.WriteString(SectionStyle.Render("Usage:"))
		sb.WriteString("\n  ")
		sb.WriteString(usageLine(ctx.Model.Name, node))
		sb.WriteString("\n")

		if cmds := getCommands(node); len(cmds) > 0 {
			writeSection(&sb, "Commands:", cmds)
		}
		if args := getArguments(node); len(args) > 0 {
			writeSection(&sb, "Arguments:", args)
		}
		flags := getFlags(ctx.Model.Node)
		if node != ctx.Model.Node {
			flags = append(flags, getNodeFlags(node)...)
		}
		writeSection(&sb, "Flags:", flags)

		sb.WriteString("\n")
		fmt.Fprint(ctx.Stdout, sb.String())
		return nil
	}
}

type entry struct {
	name       string
	help       string
	defaultVal string
}

func writeSection(sb *strings.Builder, title string, entries []entry) {
	sb.WriteString("\n")
	sb.WriteString(SectionStyle.Render(title))
	sb.WriteString("\n")
	for _, e := range entries {
		sb.WriteString("  ")
		sb.WriteString(GoodStyle.Bold(true).Render(e.name))
		if e.help != "" {
			sb.WriteString("  ")
			sb.WriteString(e.help)
		}
		if e.defaultVal != "" {
			sb.WriteString(" ")
			sb.WriteString(KeyStyle.Italic(true).Render("(default: " + e.defaultVal + ")"))
		}
		sb.WriteString("\n")
	}
}

func usageLine(app string, node *kong.Node) string {
	parts := []string{app}
	if node.Type == kong.CommandNode {
		parts = append(parts, node.Path())
	}
	parts = append(parts, "[flags]")
	if len(getCommands(node)) > 0 {
		parts = append(parts, "<command>")
	}
	for _, arg := range node.Positional {
		parts = append(parts, arg.Summary())
	}
	return strings.Join(parts, " ")
}

func getCommands(node *kong.Node) []entry {
	var cmds []entry
	for _, child := range node.Children {
		if child.Type != kong.CommandNode || child.Hidden {
			continue
		}
		cmds = append(cmds, entry{name: child.Name, help: child.Help})
	}
	return cmds
}

func getArguments(node *kong.Node) []entry {
	var args []entry
	for _, arg := range node.Positional {
		args = append(args, entry{name: arg.Summary(), help: arg.Help})
	}
	return args
}

func getFlags(node *kong.Node) []entry {
	// Always include help flag
	flags := []entry{{name: "-h, --help", help: "Show context-sensitive help."}}
	return append(flags, getNodeFlags(node)...)
}

func getNodeFlags(node *kong.Node) []entry {
	var flags []entry
	for _, f := range node.Flags {
		if f.Name == "help" || f.Hidden {
			continue
		}

		name := "--" + f.Name
		if f.Short != 0 {
			name = fmt.Sprintf("-%c, --%s", f.Short, f.Name)
		}
		if !f.IsBool() {
			name += "=" + strings.ToUpper(f.FormatPlaceHolder())
		}

		flags = append(flags, entry{
			name:       name,
			help:       f.Help,
			defaultVal: f.Default,
		})
	}
	return flags
}

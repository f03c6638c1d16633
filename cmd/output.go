package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"rax/types"
)

// Icon semantics:
//   ✓  success
//   ✗  error (written to stderr)
//   ⚠  warning
//   ~  neutral info / state change

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
	answerStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(80)
)

func printSection(title string) {
	fmt.Printf("\n%s\n", titleStyle.Render("=== "+title+" ==="))
}

func printOK(name, msg string)   { printLine(os.Stdout, okStyle.Render("✓"), name, msg) }
func printErr(name, msg string)  { printLine(os.Stderr, errStyle.Render("✗"), name, msg) }
func printWarn(name, msg string) { printLine(os.Stdout, warnStyle.Render("⚠"), name, msg) }
func printInfo(name, msg string) { printLine(os.Stdout, infoStyle.Render("~"), name, msg) }

func printLine(w io.Writer, icon, name, msg string) {
	if name == "" {
		fmt.Fprintf(w, "  %s  %s\n", icon, msg)
	} else {
		fmt.Fprintf(w, "  %s  [%s] %s\n", icon, name, msg)
	}
}

// renderAnswer formats one answer with its sources for the terminal.
func renderAnswer(resp *types.AskResponse) string {
	out := titleStyle.Render("Q: "+resp.Question) + "\n" + answerStyle.Render(resp.Answer) + "\n"
	if len(resp.Sources) == 0 {
		return out + dimStyle.Render("  no sources retrieved") + "\n"
	}
	out += dimStyle.Render("Sources:") + "\n"
	for i, src := range resp.Sources {
		out += dimStyle.Render(fmt.Sprintf("  %d. %s  score=%.3f", i+1, src.SourceFile, src.Score)) + "\n"
	}
	return out
}

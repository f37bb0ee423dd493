package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/graph"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/mirror"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	styleStub        = lipgloss.NewStyle().Foreground(colorRed)
	styleCommand     = lipgloss.NewStyle().Foreground(colorBlue)
)

const (
	iconSuccess = "✓"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a file output line.
func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

func printKeyValue(w io.Writer, key, value string) {
	fmt.Fprintln(w, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(w io.Writer, description, cmd string) {
	fmt.Fprintln(w, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// =============================================================================
// Pass Summary
// =============================================================================

// printPlan prints what a pass would do. With names set, every affected
// package is listed under its count.
func printPlan(w io.Writer, plan *mirror.Plan, names bool) {
	fmt.Fprintln(w, StyleTitle.Render("Plan"))
	sets := []struct {
		key   string
		names []string
		n     int
	}{
		{"create", plan.ToCreate, len(plan.ToCreate)},
		{"update", plan.ToUpdate, len(plan.ToUpdate)},
		{"delete", plan.ToDelete, len(plan.ToDelete)},
		{"unchanged", nil, plan.Unchanged},
	}
	for _, set := range sets {
		printCount(w, set.key, set.n)
		if !names || set.n == 0 {
			continue
		}
		if set.key == "unchanged" {
			set.names = plan.UnchangedNames()
		}
		printDetail(w, "%s", strings.Join(set.names, " "))
	}
}

// printResult prints the per-outcome counts of a completed pass.
func printResult(w io.Writer, res *mirror.Result) {
	fmt.Fprintln(w, StyleTitle.Render("Pass ")+StyleDim.Render(res.RunID))
	printCount(w, "created", res.Created)
	printCount(w, "stubbed", res.Stubbed)
	printCount(w, "updated", res.Updated)
	printCount(w, "skipped", res.Skipped)
	printCount(w, "unchanged", res.Unchanged)
	printCount(w, "deleted", res.Deleted)
	printKeyValue(w, "duration", res.Duration.Round(time.Millisecond).String())
}

// printGraphStats prints node, edge, root and leaf counts on one line,
// flagging cycles.
func printGraphStats(w io.Writer, g *graph.Graph) {
	shape := StyleDim.Render("acyclic")
	if g.HasCycle() {
		shape = StyleWarning.Render("cyclic")
	}
	parts := []string{
		fmt.Sprintf("%d nodes", g.NodeCount()),
		fmt.Sprintf("%d edges", g.EdgeCount()),
		fmt.Sprintf("%d roots", len(g.Sources())),
		fmt.Sprintf("%d leaves", len(g.Sinks())),
	}
	line := "  "
	for _, part := range parts {
		line += StyleDim.Render(part) + StyleDim.Render(" · ")
	}
	fmt.Fprintln(w, line+shape)
}

// printTopDependents lists the n packages most others depend on.
func printTopDependents(w io.Writer, g *graph.Graph, n int) {
	top := graph.RankByInDegree(g, n)
	if len(top) == 0 {
		return
	}
	fmt.Fprintln(w, StyleTitle.Render("Most depended upon"))
	for _, r := range top {
		printCount(w, r.ID, r.Dependents)
	}
}

func printCount(w io.Writer, key string, n int) {
	fmt.Fprintln(w, styleKey.Render(key)+" "+StyleNumber.Render(strconv.Itoa(n)))
}

package display

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/backmassage/fetchmaster/internal/pipeline"
	"github.com/backmassage/fetchmaster/internal/scheduler"
)

var (
	reportTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	reportMutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	reportOKStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	reportSkipStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	reportFailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	reportPanelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	reportOutputStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

// PrintReport renders the end-of-run report: one line per job in input
// order, then summary counts. Written to stdout; the structured log file
// already has the per-stage detail.
func PrintReport(rep *scheduler.Report) {
	var lines []string
	lines = append(lines, reportTitleStyle.Render("Run report")+
		reportMutedStyle.Render("  "+rep.RunID))
	lines = append(lines, "")

	for _, j := range rep.Jobs {
		lines = append(lines, jobLine(j))
		for _, out := range j.Outputs {
			size := ""
			if fi, err := os.Stat(out); err == nil {
				size = reportMutedStyle.Render("  (" + FormatBytes(fi.Size()) + ")")
			}
			lines = append(lines, reportOutputStyle.Render("      -> "+out)+size)
		}
		if j.Status == pipeline.StatusFailed && j.Err != nil {
			lines = append(lines, reportMutedStyle.Render(
				fmt.Sprintf("      %s at %s: %v", j.Category, j.FailedStage, j.Err)))
		}
	}

	lines = append(lines, "")
	lines = append(lines, summaryLine(rep))

	fmt.Println(reportPanelStyle.Render(strings.Join(lines, "\n")))
}

func jobLine(j scheduler.JobResult) string {
	var badge string
	switch j.Status {
	case pipeline.StatusSucceeded:
		badge = reportOKStyle.Render("  OK  ")
	case pipeline.StatusSkipped:
		badge = reportSkipStyle.Render(" SKIP ")
	default:
		badge = reportFailStyle.Render(" FAIL ")
	}
	return fmt.Sprintf("%s %2d. %s %s %s",
		badge, j.Index+1, j.Label,
		reportMutedStyle.Render("["+j.Kind+"]"),
		reportMutedStyle.Render(FormatDuration(j.Elapsed)))
}

func summaryLine(rep *scheduler.Report) string {
	parts := []string{
		reportOKStyle.Render(fmt.Sprintf("%d succeeded", rep.Succeeded)),
	}
	if rep.Skipped > 0 {
		parts = append(parts, reportSkipStyle.Render(fmt.Sprintf("%d skipped", rep.Skipped)))
	}
	if rep.Failed > 0 {
		parts = append(parts, reportFailStyle.Render(fmt.Sprintf("%d failed", rep.Failed)))
	}
	parts = append(parts, reportMutedStyle.Render("in "+FormatDuration(rep.Elapsed)))
	return strings.Join(parts, reportMutedStyle.Render("  |  "))
}

// Package observability provides tracing setup and formatted CLI output.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/content-pipeline/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxPreviewLines is the number of content lines shown in a result box
	maxPreviewLines = 12
)

// Printer handles formatted output for the command line
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintPipelineResult outputs a summary of a completed pipeline run followed
// by a preview of the generated content.
func (p *Printer) PrintPipelineResult(resp *types.PipelineResponse) {
	if resp == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:        %s\n", resp.PipelineRunID))
	sb.WriteString(fmt.Sprintf("Quality:    %.1f / 10\n", resp.QualityScore))
	sb.WriteString(fmt.Sprintf("Duration:   %.2fs\n", resp.ProcessingTime))

	keys := make([]string, 0, len(resp.Metadata))
	for k := range resp.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("%-11s %v\n", k+":", resp.Metadata[k]))
	}
	p.printBox("PIPELINE RESULT", strings.TrimRight(sb.String(), "\n"))

	lines := strings.Split(strings.TrimSpace(resp.Content), "\n")
	if len(lines) > maxPreviewLines {
		more := len(lines) - maxPreviewLines
		lines = append(lines[:maxPreviewLines], fmt.Sprintf("... and %d more lines", more))
	}
	p.printBox("CONTENT", strings.Join(lines, "\n"))
}

// PrintClient outputs a short summary of a client profile.
func (p *Printer) PrintClient(c *types.ClientProfile) {
	if c == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:      %s\n", c.Name))
	sb.WriteString(fmt.Sprintf("Email:     %s\n", c.Email))
	if c.Company != "" {
		sb.WriteString(fmt.Sprintf("Company:   %s\n", c.Company))
	}
	sb.WriteString(fmt.Sprintf("Industry:  %s\n", c.ICPProfile.Industry))
	sb.WriteString(fmt.Sprintf("Services:  %s\n", strings.Join(c.ServiceOffering.Services, ", ")))
	tone := c.ContentPreferences.Tone
	if tone == "" {
		tone = "professional"
	}
	sb.WriteString(fmt.Sprintf("Tone:      %s", tone))
	p.printBox("CLIENT", sb.String())
}

package crm

import (
	"fmt"
	"strings"

	"github.com/signaldesk/backend/internal/domain/crm"
)

// formatSignalNote renders the plaintext note body attached to provider-side
// records. Pipedrive gets its own HTML variant.
func formatSignalNote(signal *crm.Signal) string {
	var b strings.Builder
	b.WriteString("Signal Detected by SignalDesk\n\n")
	fmt.Fprintf(&b, "Type: %s\n", signal.SignalType.Label())
	fmt.Fprintf(&b, "Priority: %s\n", signal.Priority.Label())
	fmt.Fprintf(&b, "Title: %s\n\n", signal.Title)
	fmt.Fprintf(&b, "Summary:\n%s\n\n", signal.Summary)
	fmt.Fprintf(&b, "Source: %s\n", signal.SourceName)
	fmt.Fprintf(&b, "URL: %s\n", signal.SourceURL)
	fmt.Fprintf(&b, "Detected: %s\n", signal.DetectedAt.Format("2006-01-02"))

	if extra := formatMetadata(signal.Metadata, "- %s: %s\n"); extra != "" {
		b.WriteString("\nAdditional Info:\n")
		b.WriteString(extra)
	}
	return b.String()
}

// formatSignalNoteHTML is the Pipedrive note body; Pipedrive renders notes
// as HTML.
func formatSignalNoteHTML(signal *crm.Signal) string {
	var b strings.Builder
	b.WriteString("<b>Signal Detected by SignalDesk</b><br><br>")
	fmt.Fprintf(&b, "<b>Type:</b> %s<br>", signal.SignalType.Label())
	fmt.Fprintf(&b, "<b>Priority:</b> %s<br>", signal.Priority.Label())
	fmt.Fprintf(&b, "<b>Title:</b> %s<br><br>", signal.Title)
	fmt.Fprintf(&b, "<b>Summary:</b><br>%s<br><br>", signal.Summary)
	fmt.Fprintf(&b, "<b>Source:</b> %s<br>", signal.SourceName)
	fmt.Fprintf(&b, "<b>URL:</b> <a href=%q>%s</a><br>", signal.SourceURL, signal.SourceURL)
	fmt.Fprintf(&b, "<b>Detected:</b> %s<br>", signal.DetectedAt.Format("2006-01-02"))

	if extra := formatMetadata(signal.Metadata, "&bull; %s: %s<br>"); extra != "" {
		b.WriteString("<br><b>Additional Info:</b><br>")
		b.WriteString(extra)
	}
	return b.String()
}

// metadataLabels maps the scraper's metadata keys to note labels. Unknown
// keys are skipped.
var metadataLabels = []struct {
	key   string
	label string
}{
	{"funding_amount", "Funding"},
	{"location", "Location"},
	{"job_titles", "Roles"},
	{"industry", "Industry"},
}

func formatMetadata(metadata map[string]string, format string) string {
	if len(metadata) == 0 {
		return ""
	}
	var b strings.Builder
	for _, entry := range metadataLabels {
		if value := metadata[entry.key]; value != "" {
			fmt.Fprintf(&b, format, entry.label, value)
		}
	}
	return b.String()
}

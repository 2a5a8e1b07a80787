package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/georgfedermann/hit2assext/pkg/domain"
	"github.com/muesli/termenv"
)

// SnapshotMarkdown describes a session snapshot as a markdown document.
func SnapshotMarkdown(snap *domain.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Session `%s`\n\n", snap.ID)
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Created | %s |\n", snap.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "| Age at capture | %ds |\n", snap.AgeSeconds)
	fmt.Fprintf(&b, "| Sequence | %d (last queried %d) |\n", snap.Sequence, snap.LastQueriedSequence)

	b.WriteString("\n## Lists\n\n")
	if len(snap.Lists) == 0 {
		b.WriteString("_none_\n")
	}
	for _, name := range sortedKeys(snap.Lists) {
		list := snap.Lists[name]
		fmt.Fprintf(&b, "### %s (%d)\n\n", name, len(list))
		for i, v := range list {
			fmt.Fprintf(&b, "%d. %s\n", i, cell(v))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n## Scalars\n\n")
	if len(snap.Scalars) == 0 {
		b.WriteString("_none_\n")
		return b.String()
	}
	b.WriteString("| Name | Value |\n|---|---|\n")
	for _, name := range sortedKeys(snap.Scalars) {
		fmt.Fprintf(&b, "| %s | %s |\n", name, cell(snap.Scalars[name]))
	}
	return b.String()
}

// SessionLine formats one row of a session listing using profile p.
func SessionLine(p termenv.Profile, snap *domain.Snapshot) string {
	id := p.String(snap.ID).Bold()
	meta := p.String(fmt.Sprintf("created %s, age %ds, %d lists, %d scalars",
		snap.CreatedAt.Format(time.RFC3339), snap.AgeSeconds, len(snap.Lists), len(snap.Scalars),
	)).Foreground(p.Color("#818cf8"))

	line := fmt.Sprintf("- %s %s", id, meta)
	if n := countDiagnostics(snap); n > 0 {
		line += " " + p.String(fmt.Sprintf("(%d diagnostics)", n)).Foreground(p.Color("#fb7185")).String()
	}
	return line
}

func cell(v any) string {
	s := fmt.Sprint(v)
	if str, ok := v.(string); ok {
		s = str
		if domain.IsDiagnosticText(str) {
			return "**" + escape(s) + "**"
		}
	}
	return "`" + escape(s) + "`"
}

func escape(s string) string {
	return strings.NewReplacer("|", `\|`, "`", "'", "\n", " ").Replace(s)
}

func countDiagnostics(snap *domain.Snapshot) int {
	n := 0
	for _, list := range snap.Lists {
		for _, v := range list {
			if s, ok := v.(string); ok && domain.IsDiagnosticText(s) {
				n++
			}
		}
	}
	for _, v := range snap.Scalars {
		if s, ok := v.(string); ok && domain.IsDiagnosticText(s) {
			n++
		}
	}
	return n
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

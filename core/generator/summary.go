package generator

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tristendillon/stager/core/models"
)

// RenderSummary writes the end-of-run table.
func RenderSummary(w io.Writer, sum models.Summary) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle("Stage summary")

	tbl.AppendRow(table.Row{"Entry", sum.Entry})
	tbl.AppendRow(table.Row{"Files in closure", sum.FilesFound})
	if sum.DryRun {
		tbl.AppendRow(table.Row{"Files copied", "dry run"})
	} else {
		tbl.AppendRow(table.Row{"Files copied", fmt.Sprintf("%d (%s)", sum.FilesCopied, humanize.Bytes(uint64(sum.BytesCopied)))})
		tbl.AppendRow(table.Row{"Files skipped", sum.FilesSkipped})
	}
	tbl.AppendRow(table.Row{"Repositories", joinOrDash(sum.Repos)})
	tbl.AppendRow(table.Row{"Missing imports", sum.MissingImports})
	tbl.AppendRow(table.Row{"Repositories not fetched", joinOrDash(sum.MissingRepos)})
	tbl.AppendRow(table.Row{"Unreadable files", sum.ReadErrors})
	if !sum.DryRun {
		tbl.AppendRow(table.Row{"Module map", fmt.Sprintf("%d entries in %s", sum.MapEntries, sum.MapPath)})
	}
	tbl.AppendFooter(table.Row{"Took", sum.Duration.Round(time.Millisecond).String()})

	tbl.Render()
}

// RenderMissing lists every unresolved import with the file that asked for it.
func RenderMissing(w io.Writer, closure *models.Closure, rawRoot string) {
	if len(closure.Missing) == 0 && len(closure.ReadErrors) == 0 {
		return
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle("Dependencies not staged")
	tbl.AppendHeader(table.Row{"Import", "Imported from", "Reason"})

	for _, m := range closure.Missing {
		tbl.AppendRow(table.Row{m.Import, relTo(rawRoot, m.From), m.Status.String()})
	}
	for _, m := range closure.ReadErrors {
		imp := m.Import
		if imp == "" {
			imp = "(entry)"
		}
		tbl.AppendRow(table.Row{imp, relTo(rawRoot, m.From), m.Status.String()})
	}

	tbl.Render()
}

// RenderCycles prints each import cycle as a -> chain.
func RenderCycles(w io.Writer, cycles [][]string, rawRoot string) {
	for _, cycle := range cycles {
		parts := make([]string, len(cycle))
		for i, p := range cycle {
			parts[i] = relTo(rawRoot, p)
		}
		fmt.Fprintf(w, "cycle: %s\n", strings.Join(parts, " -> "))
	}
}

func relTo(root, p string) string {
	if rel, err := filepath.Rel(root, p); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return p
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

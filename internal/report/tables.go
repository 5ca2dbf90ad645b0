package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/jfowler-cloud/scaffold-ai/internal/blueprint"
	"github.com/jfowler-cloud/scaffold-ai/internal/codegen"
	"github.com/jfowler-cloud/scaffold-ai/internal/core"
	"github.com/jfowler-cloud/scaffold-ai/internal/cost"
	"github.com/jfowler-cloud/scaffold-ai/internal/security"
	"github.com/jfowler-cloud/scaffold-ai/internal/splitter"
	"github.com/jfowler-cloud/scaffold-ai/internal/store"
)

func newTable(w io.Writer, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	return t
}

func FindingsTable(w io.Writer, findings []core.Finding) {
	if len(findings) == 0 {
		_, _ = fmt.Fprintln(w, "(no findings)")
		return
	}
	t := newTable(w, table.Row{"Level", "Service", "Description", "Advice"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 60},
		{Number: 4, WidthMax: 60},
	})
	for _, f := range findings {
		t.AppendRow(table.Row{f.Level, f.Source, f.Description, f.Advice})
	}
	t.Render()
}

func ScoreTable(w io.Writer, s security.Score) {
	t := newTable(w, table.Row{"Score", "Max", "Percentage"})
	t.AppendRow(table.Row{s.Score, s.MaxScore, fmt.Sprintf("%d%%", s.Percentage)})
	t.Render()
}

func CostTable(w io.Writer, est cost.Estimate) {
	t := newTable(w, table.Row{"Service", "Count", "Monthly (USD)", "Details"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
	for _, l := range est.Breakdown {
		t.AppendRow(table.Row{l.Service, l.Count, fmt.Sprintf("%.2f", l.MonthlyCost), l.Details})
	}
	t.AppendFooter(table.Row{"Total", "", fmt.Sprintf("%.2f", est.TotalMonthly), ""})
	t.Render()
	_, _ = fmt.Fprintln(w, est.Disclaimer)
}

func BlueprintTable(w io.Writer, list []blueprint.Summary) {
	t := newTable(w, table.Row{"ID", "Name", "Nodes", "Description"})
	for _, s := range list {
		t.AppendRow(table.Row{s.ID, s.Name, s.NodeCount, s.Description})
	}
	t.Render()
}

func ShareTable(w io.Writer, list []store.ShareSummary) {
	t := newTable(w, table.Row{"ID", "Title", "Nodes", "Created"})
	for _, s := range list {
		t.AppendRow(table.Row{s.ID, s.Title, s.NodeCount, s.CreatedAt.Format("2006-01-02 15:04:05")})
	}
	t.Render()
}

func HistoryTable(w io.Writer, points []store.Point) {
	t := newTable(w, table.Row{"Recorded", "Score", "Critical", "High", "Medium"})
	for _, p := range points {
		t.AppendRow(table.Row{p.Timestamp.Format("2006-01-02 15:04:05"), p.Score, p.CriticalCount, p.HighCount, p.MediumCount})
	}
	t.Render()
}

func LayersTable(w io.Writer, layers splitter.Layers) {
	t := newTable(w, table.Row{"Layer", "Nodes", "Edges"})
	for _, l := range layers {
		t.AppendRow(table.Row{l.Name, len(l.Nodes), len(l.Edges)})
	}
	t.Render()
}

func FilesTable(w io.Writer, files []codegen.File) {
	t := newTable(w, table.Row{"Path", "Bytes"})
	for _, f := range files {
		t.AppendRow(table.Row{f.Path, len(f.Content)})
	}
	t.Render()
}

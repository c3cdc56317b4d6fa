package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/xiaoshicae/xvision/agent"
	"github.com/xiaoshicae/xvision/stress"
)

func newTable(header ...any) table.Writer {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	w.AppendHeader(table.Row(header))
	return w
}

func nodesTable(nodes []string) string {
	w := newTable("#", "Node")
	w.SetColumnConfigs([]table.ColumnConfig{{Number: 1, Align: text.AlignRight}})
	for i, n := range nodes {
		w.AppendRow(table.Row{i + 1, n})
	}
	return w.Render()
}

func filesTable(files []agent.PipelineFile) string {
	w := newTable("Name", "Format", "Entries", "Nodes", "Description")
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, WidthMax: 40},
	})
	for _, f := range files {
		w.AppendRow(table.Row{f.Name, f.Format, strings.Join(f.Entries, ", "), f.NodeCount, f.Description})
	}
	w.AppendFooter(table.Row{"Total", "", "", len(files), ""})
	return w.Render()
}

func stressTable(r *stress.Run) string {
	rate := 0.0
	if r.TotalIterations > 0 {
		rate = float64(r.Successful) / float64(r.TotalIterations) * 100
	}
	w := newTable("Iterations", "Successful", "Failed", "Rate", "Cost")
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	w.AppendRow(table.Row{r.TotalIterations, r.Successful, r.Failed, fmt.Sprintf("%.1f%%", rate),
		time.Duration(r.CostMs) * time.Millisecond})
	return w.Render()
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jfowler-cloud/scaffold-ai/internal/core"
	"github.com/jfowler-cloud/scaffold-ai/internal/cost"
	"github.com/jfowler-cloud/scaffold-ai/internal/report"
	"github.com/jfowler-cloud/scaffold-ai/internal/security"
	"github.com/jfowler-cloud/scaffold-ai/internal/splitter"
)

var (
	reviewFormat string
	fixInPlace   bool
	fixOutput    string
	graphOutput  string
)

var reviewCmd = &cobra.Command{
	Use:   "review [graph.json]",
	Short: "Run the security review on an architecture graph",
	Long: `Review an architecture graph and print critical issues, warnings and
recommendations. --format selects terminal (default), table, log, html, json,
csv or all; file formats are written to the output directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := readGraph(args)
		if err != nil {
			return err
		}
		r := security.ReviewGraph(g)
		out := cmd.OutOrStdout()

		switch reviewFormat {
		case "terminal", "":
			t := report.NewTerminal(out, colorOutput())
			t.PrintBanner()
			t.PrintReview(r)
			t.PrintSummary(len(g.Nodes))
		case "log":
			core.PrintFindings(log, r.Findings())
		case "table":
			report.FindingsTable(out, r.Findings())
			report.ScoreTable(out, security.SecurityScore(g))
		case "html":
			name := filepath.Join(settings.OutputDir, "scaffold_review.html")
			if err := report.GenerateHTML(r, name); err != nil {
				return err
			}
			log.Infof("HTML report written to %s", name)
		default:
			written, err := core.SaveFindings(r.Findings(), reviewFormat, settings.OutputDir)
			if err != nil {
				return err
			}
			for _, p := range written {
				log.Infof("report written to %s", p)
			}
		}

		if !r.Passed {
			return fmt.Errorf("security review failed with score %d", r.Score)
		}
		return nil
	},
}

var fixCmd = &cobra.Command{
	Use:   "fix [graph.json]",
	Short: "Apply security hardening to a graph",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := readGraph(args)
		if err != nil {
			return err
		}
		fixed, changes := security.AnalyzeAndFix(g)

		t := report.NewTerminal(cmd.ErrOrStderr(), colorOutput())
		t.PrintChanges(changes)

		target := fixOutput
		if fixInPlace && len(args) > 0 && args[0] != "-" {
			target = args[0]
		}
		if target == "" {
			return fixed.Encode(cmd.OutOrStdout())
		}
		if err := fixed.Save(target); err != nil {
			return err
		}
		log.Infof("hardened graph written to %s (%d changes)", target, len(changes))
		return nil
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score [graph.json]",
	Short: "Print the weighted security score",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := readGraph(args)
		if err != nil {
			return err
		}
		report.ScoreTable(cmd.OutOrStdout(), security.SecurityScore(g))
		return nil
	},
}

var splitCmd = &cobra.Command{
	Use:   "split [graph.json]",
	Short: "Show how a graph partitions into per-layer stacks",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := readGraph(args)
		if err != nil {
			return err
		}
		layers := splitter.SplitByLayer(g.Nodes, g.Edges)
		out := cmd.OutOrStdout()
		if !splitter.ShouldSplit(g.Nodes) {
			fmt.Fprintf(out, "%d nodes, at or below the split threshold of %d; a single stack is generated.\n",
				len(g.Nodes), splitter.Threshold)
		}
		report.LayersTable(out, layers)
		return nil
	},
}

var costCmd = &cobra.Command{
	Use:   "cost [graph.json]",
	Short: "Estimate monthly AWS cost for a graph",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := readGraph(args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		report.CostTable(out, cost.EstimateGraph(g))
		for _, tip := range cost.Tips(g) {
			fmt.Fprintf(out, "  - %s\n", tip)
		}
		return nil
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph [graph.json]",
	Short: "Export a graph as Graphviz DOT",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := readGraph(args)
		if err != nil {
			return err
		}
		var w io.Writer = cmd.OutOrStdout()
		if graphOutput != "" {
			f, err := os.Create(graphOutput)
			if err != nil {
				return fmt.Errorf("cannot create output file: %w", err)
			}
			defer f.Close()
			w = f
		}
		if err := g.ExportDOT(w); err != nil {
			return fmt.Errorf("failed to write DOT: %w", err)
		}
		if graphOutput != "" {
			log.Infof("graph written to %s; render it with `dot -Tsvg %s`", graphOutput, graphOutput)
		}
		return nil
	},
}

// printJSON writes v indented; used by commands with a --json switch.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	reviewCmd.Flags().StringVarP(&reviewFormat, "format", "f", "terminal", "terminal, table, log, html, json, csv or all")
	fixCmd.Flags().BoolVarP(&fixInPlace, "in-place", "i", false, "overwrite the input file")
	fixCmd.Flags().StringVar(&fixOutput, "out", "", "write the hardened graph to this file instead of stdout")
	graphCmd.Flags().StringVar(&graphOutput, "out", "", "write DOT to this file instead of stdout")

	rootCmd.AddCommand(reviewCmd, fixCmd, scoreCmd, splitCmd, costCmd, graphCmd)
}

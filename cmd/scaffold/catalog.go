package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jfowler-cloud/scaffold-ai/internal/blueprint"
	"github.com/jfowler-cloud/scaffold-ai/internal/report"
	"github.com/jfowler-cloud/scaffold-ai/internal/security"
	"github.com/jfowler-cloud/scaffold-ai/internal/store"
)

var (
	blueprintFile string
	blueprintOut  string
	shareTitle    string
	shareOut      string
)

func loadCatalog() (*blueprint.Catalog, error) {
	if blueprintFile != "" {
		return blueprint.Load(blueprintFile)
	}
	return blueprint.Default()
}

var blueprintCmd = &cobra.Command{
	Use:     "blueprint",
	Aliases: []string{"template"},
	Short:   "Browse the built-in architecture blueprints",
}

var blueprintListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blueprints",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadCatalog()
		if err != nil {
			return err
		}
		report.BlueprintTable(cmd.OutOrStdout(), c.List())
		return nil
	},
}

var blueprintShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a blueprint's graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadCatalog()
		if err != nil {
			return err
		}
		bp, err := c.Get(args[0])
		if err != nil {
			return err
		}
		if blueprintOut != "" {
			if err := bp.Graph.Save(blueprintOut); err != nil {
				return err
			}
			log.Infof("%s written to %s", bp.Name, blueprintOut)
			return nil
		}
		return bp.Graph.Encode(cmd.OutOrStdout())
	},
}

// withStore opens the store for the duration of fn.
func withStore(fn func(db *store.SQLite) error) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Publish and fetch shared architectures",
}

var shareCreateCmd = &cobra.Command{
	Use:   "create [graph.json]",
	Short: "Share a graph and print its id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := readGraph(args)
		if err != nil {
			return err
		}
		return withStore(func(db *store.SQLite) error {
			id, err := store.NewSharing(db).Create(cmd.Context(), g, shareTitle)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	},
}

var shareGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a shared graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(db *store.SQLite) error {
			sh, err := store.NewSharing(db).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if shareOut != "" {
				return sh.Graph.Save(shareOut)
			}
			return sh.Graph.Encode(cmd.OutOrStdout())
		})
	},
}

var shareListCmd = &cobra.Command{
	Use:   "list",
	Short: "List shared graphs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(db *store.SQLite) error {
			list, err := store.NewSharing(db).List(cmd.Context())
			if err != nil {
				return err
			}
			report.ShareTable(cmd.OutOrStdout(), list)
			return nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Track security scores of an architecture over time",
}

var historyRecordCmd = &cobra.Command{
	Use:   "record <architecture-id> [graph.json]",
	Short: "Review a graph and record its score",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := readGraph(args[1:])
		if err != nil {
			return err
		}
		r := security.ReviewGraph(g)
		return withStore(func(db *store.SQLite) error {
			p, err := store.NewHistory(db).Record(cmd.Context(), args[0], r.Score, r.Issues())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded score %d for %s\n", p.Score, args[0])
			return nil
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <architecture-id>",
	Short: "Show recorded scores and the trend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(db *store.SQLite) error {
			h := store.NewHistory(db)
			points, err := h.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			imp, err := h.Improvement(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			report.HistoryTable(out, points)
			fmt.Fprintf(out, "trend: %s (%+d over %d points)\n", imp.Trend, imp.Improvement, imp.DataPoints)
			return nil
		})
	},
}

func init() {
	blueprintCmd.PersistentFlags().StringVar(&blueprintFile, "file", "", "blueprint catalog (default ./config/blueprints.yaml or built-in)")
	blueprintShowCmd.Flags().StringVar(&blueprintOut, "out", "", "write the graph to this file")
	blueprintCmd.AddCommand(blueprintListCmd, blueprintShowCmd)

	shareCreateCmd.Flags().StringVarP(&shareTitle, "title", "t", "", "title shown in share listings")
	shareGetCmd.Flags().StringVar(&shareOut, "out", "", "write the graph to this file")
	shareCmd.AddCommand(shareCreateCmd, shareGetCmd, shareListCmd)

	historyCmd.AddCommand(historyRecordCmd, historyShowCmd)

	rootCmd.AddCommand(blueprintCmd, shareCmd, historyCmd)
}

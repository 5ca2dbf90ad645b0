package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jfowler-cloud/scaffold-ai/internal/codegen"
	"github.com/jfowler-cloud/scaffold-ai/internal/deploy"
	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
	"github.com/jfowler-cloud/scaffold-ai/internal/report"
	"github.com/jfowler-cloud/scaffold-ai/internal/security"
	"github.com/jfowler-cloud/scaffold-ai/internal/splitter"
	"github.com/jfowler-cloud/scaffold-ai/internal/workflow"
)

var (
	genAll        bool
	genNoFrontend bool
	genProject    string
	genNoApproval bool

	runMessage string
	runSave    string
	runJSON    bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [graph.json]",
	Short: "Generate infrastructure code for a graph",
	Long: `Generate infrastructure and frontend code for an architecture graph into
the output directory. The security review must pass unless --skip-security
is set. --all renders every dialect concurrently, one directory per dialect.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := readGraph(args)
		if err != nil {
			return err
		}
		reg := renderers()
		ctx := commandContext(cmd.Context())

		r := security.ReviewGraph(g)
		if !r.Gate() {
			if !settings.SkipSecurity {
				report.NewTerminal(cmd.ErrOrStderr(), colorOutput()).PrintReview(r)
				return fmt.Errorf("security review failed with score %d; fix the graph or pass --skip-security", r.Score)
			}
			log.Warnf("security review failed with score %d, generating anyway", r.Score)
		}

		if genAll {
			byDialect, err := reg.RenderAll(ctx, g, reg.List()...)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(byDialect))
			for name := range byDialect {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if err := writeFiles(filepath.Join(settings.OutputDir, name), byDialect[name]); err != nil {
					return err
				}
				log.Infof("%s: %d files", name, len(byDialect[name]))
			}
			return nil
		}

		dialect := strings.ToLower(settings.Dialect)
		if dialect == codegen.DialectCDK && splitter.ShouldSplit(g.Nodes) {
			log.Infof("%d nodes exceed the split threshold, using %s", len(g.Nodes), codegen.DialectCDKNested)
			dialect = codegen.DialectCDKNested
		}
		dialects := []string{dialect}
		if !genNoFrontend {
			dialects = append(dialects, codegen.DialectFrontend)
		}

		files, failures := reg.RenderChain(ctx, g, dialects...)
		for _, f := range failures {
			log.Warnf("%s failed and was replaced by cdk: %s", f.Dialect, f.Error)
		}

		if genProject != "" {
			project, err := projectFiles(files)
			if err != nil {
				return err
			}
			files = append(files, project...)
		}

		if err := writeFiles(settings.OutputDir, files); err != nil {
			return err
		}
		report.FilesTable(cmd.OutOrStdout(), files)
		return nil
	},
}

// projectFiles wraps the generated CDK stack in a deployable project.
func projectFiles(files []codegen.File) ([]codegen.File, error) {
	var stack string
	for _, f := range files {
		if f.Path == codegen.CDKStackPath {
			stack = f.Content
			break
		}
	}
	req := deploy.NewRequest(genProject, stack, "")
	req.Region = settings.Region
	req.ApprovalRequired = !genNoApproval
	project, err := deploy.ProjectFiles(req)
	if err != nil {
		return nil, err
	}
	for i := range project {
		project[i].Path = "deploy/" + strings.ToLower(genProject) + "/" + project[i].Path
	}
	return project, nil
}

var runCmd = &cobra.Command{
	Use:   "run [graph.json]",
	Short: "Send one chat request through the workflow",
	Long: `Run a natural-language request against a graph: classify the intent,
update the architecture, review it and generate code when asked. A model is
used when config/ai.yaml enables one; otherwise keyword matching decides.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(runMessage) == "" {
			return fmt.Errorf("--message is required")
		}
		g := graph.New()
		if len(args) > 0 {
			loaded, err := readGraph(args)
			if err != nil {
				return err
			}
			g = loaded
		}
		st, err := newEngine(renderers()).Run(cmd.Context(), workflow.Request{
			Message:      runMessage,
			Graph:        g,
			Dialect:      settings.Dialect,
			SkipSecurity: settings.SkipSecurity,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if runJSON {
			return printJSON(out, st)
		}

		fmt.Fprintf(out, "[%s] %s\n", st.Intent, st.Response)
		if st.Review != nil {
			report.FindingsTable(out, st.Review.Findings())
		}
		if len(st.Files) > 0 {
			if err := writeFiles(settings.OutputDir, st.Files); err != nil {
				return err
			}
			report.FilesTable(out, st.Files)
		}
		if runSave != "" {
			if err := st.Graph.Save(runSave); err != nil {
				return err
			}
			log.Infof("updated graph written to %s", runSave)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().BoolVar(&genAll, "all", false, "render every registered dialect")
	generateCmd.Flags().BoolVar(&genNoFrontend, "no-frontend", false, "skip the React frontend")
	generateCmd.Flags().StringVar(&genProject, "project", "", "also lay out a deployable CDK project with this stack name")
	generateCmd.Flags().BoolVar(&genNoApproval, "no-approval", false, "let cdk deploy without approving security changes")

	runCmd.Flags().StringVarP(&runMessage, "message", "m", "", "the request, e.g. \"add a queue for orders\"")
	runCmd.Flags().StringVar(&runSave, "save", "", "write the updated graph to this file")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the full workflow state as JSON")

	rootCmd.AddCommand(generateCmd, runCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jfowler-cloud/scaffold-ai/internal/config"
	"github.com/jfowler-cloud/scaffold-ai/internal/logging"
)

var (
	log      *zap.SugaredLogger
	logger   *zap.Logger
	settings *config.Settings
	closeLog = func() error { return nil }

	// Command line flags
	cfgFile string
	noColor bool
)

func init() {
	l, _ := zap.NewProduction()
	logger = l
	log = l.Sugar()
}

var rootCmd = &cobra.Command{
	Use:   "scaffold",
	Short: "scaffold-ai - turn architecture graphs into reviewed infrastructure code",
	Long: `scaffold-ai reviews an architecture graph of cloud resources, hardens it,
and renders it as CDK, CloudFormation, Terraform or Python CDK code.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		settings = s

		l, closer, err := logging.New(logging.Options{Level: s.LogLevel, File: s.LogFile})
		if err != nil {
			return err
		}
		logger, log, closeLog = l, l.Sugar(), closer
		if s.File != "" {
			log.Debugf("loaded settings from %s", s.File)
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "settings file (default ./"+config.DefaultFile+")")
	pf.BoolVar(&noColor, "no-color", false, "disable colored terminal output")
	pf.String("log-level", "info", "debug, info, warn or error")
	pf.String("log-file", "", "also write JSON logs to this rotated file")
	pf.String("store-path", "scaffold.db", "SQLite database for shares and history")
	pf.StringP("dialect", "d", "cdk", "code generation dialect")
	pf.String("region", "us-east-1", "AWS region written into generated code")
	pf.StringP("output-dir", "o", ".", "directory generated files and reports are written to")
	pf.Bool("skip-security", false, "generate code even when the security review fails")
	pf.Duration("ai-timeout", 0, "timeout for each model call (default 60s)")
	pf.String("ai-config", "", "AI provider config file (default ./config/ai.yaml or built-in)")
	pf.String("prompts-file", "", "prompt file (default ./config/prompts.yaml or built-in)")
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic: %v", r)
			os.Exit(1)
		}
		_ = closeLog()
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		_ = closeLog()
		os.Exit(1)
	}
}

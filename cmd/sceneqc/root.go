package main

import (
	"github.com/spf13/cobra"

	"sceneqc/internal/config"
	"sceneqc/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string

	// cfg is resolved in PersistentPreRunE.
	cfg config.Config
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "sceneqc",
		Short: "Primvar and topology consistency checks for composed scenes",
		Long: "sceneqc walks every primitive of a composed scene and reports primvars\n" +
			"whose element counts disagree with the topology their interpolation implies.",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.resolve(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Config file (default: ./"+config.DefaultFile+" when present)")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&g.logFormat, "log-format", "", "Log format: text or json")

	root.AddCommand(newCheckCmd(g))
	root.AddCommand(newHistoryCmd(g))
	root.AddCommand(newServeCmd(g))
	root.Version = version
	return root
}

// resolve loads the config file and environment, lets explicit flags win,
// then sets up logging on stderr.
func (g *globalFlags) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.logFormat != "" {
		cfg.LogFormat = g.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.Init(level, cfg.LogFormat, cmd.ErrOrStderr())
	g.cfg = cfg
	return nil
}

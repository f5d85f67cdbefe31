// Package cli implements the finiquitos command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/benjaminschreck/go-finiquito/pkg/merge"
)

// Version is set at build time with -ldflags.
var Version = "0.1.0"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	viper   *viper.Viper
	cfgFile string

	cfg    *merge.Config
	logger *zap.Logger

	prompter    Prompter
	interactive func() bool
}

func newApp() *app {
	return &app{
		viper:       merge.NewViper(),
		prompter:    surveyPrompter{},
		interactive: stdinIsTerminal,
	}
}

// Execute runs the root command
func Execute() error {
	return newRootCommand(newApp()).Execute()
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "finiquitos",
		Short: "Generate severance settlement documents from a payroll workbook",
		Long: `finiquitos fills a Word template with the rows of a payroll workbook and
writes one document per employee.

Placeholders such as «Nombre_completo» or «NETO» are replaced run by run, so
the template keeps its formatting. The net amount is written with its Spanish
wording when the surrounding text asks for it.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	flags.String("log-level", "", "log level (debug, info, warn, error, off)")
	flags.String("log-format", "", "log format (console, json)")
	_ = a.viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = a.viper.BindPFlag("log_format", flags.Lookup("log-format"))

	root.AddCommand(
		newGenerateCommand(a),
		newServeCommand(a),
		newPlaceholdersCommand(a),
		newConfigCommand(a),
		newVersionCommand(),
	)
	return root
}

// init reads the configuration and builds the logger. Flags win over the
// environment, which wins over the config file.
func (a *app) init() error {
	if a.cfgFile != "" {
		a.viper.SetConfigFile(a.cfgFile)
		a.viper.SetConfigType("yaml")
		if err := a.viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := merge.ConfigFromViper(a.viper)
	if err != nil {
		return err
	}
	a.cfg = cfg
	merge.SetGlobalConfig(cfg)

	logger, err := merge.NewZapLogger(merge.LoggerConfig{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputPath: "stderr",
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.logger = logger
	merge.SetLogger(merge.FromZap(logger))

	if used := a.viper.ConfigFileUsed(); used != "" {
		logger.Debug("Using config file", zap.String("path", used))
	}
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "finiquitos v%s\n", Version)
		},
	}
}

func stdinIsTerminal() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

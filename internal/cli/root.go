// Package cli implementa a linha de comando raysouz.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/raywall/raysouz-constructs/internal/client"
)

// Version é injetada via -ldflags no build.
var Version = "dev"

// newAWSClient é substituído nos testes.
var newAWSClient = client.New

type options struct {
	v      *viper.Viper
	logger *logrus.Logger
}

// NewRootCommand monta a árvore de comandos. Flags podem vir do ambiente
// como RAYSOUZ_<FLAG>, ex.: RAYSOUZ_LOG_LEVEL=debug.
func NewRootCommand() *cobra.Command {
	opts := &options{v: viper.New(), logger: logrus.New()}
	opts.v.SetEnvPrefix("RAYSOUZ")
	opts.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	opts.v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "raysouz",
		Short:         "Synthesize raysouz constructs into deployable templates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.configureLogger(cmd)
		},
	}
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "text", "log format (text, json)")
	_ = opts.v.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))
	_ = opts.v.BindPFlag("log-format", root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(newSynthCommand(opts), newVersionCommand())
	return root
}

// Execute roda a CLI com ctx.
func Execute(ctx context.Context) error {
	root := NewRootCommand()
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return err
}

func (o *options) configureLogger(cmd *cobra.Command) error {
	level, err := logrus.ParseLevel(o.v.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	o.logger.SetLevel(level)
	o.logger.SetOutput(cmd.ErrOrStderr())

	switch o.v.GetString("log-format") {
	case "json":
		o.logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		o.logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	default:
		return fmt.Errorf("invalid log format %q", o.v.GetString("log-format"))
	}
	return nil
}

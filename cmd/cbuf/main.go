package main

import (
	"fmt"
	"os"
	"strings"

	"circularbuffer/pkg/bench"
	"circularbuffer/pkg/cbconfig"
	"circularbuffer/pkg/cbhost"
	"circularbuffer/pkg/repl"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "cbuf",
		Short:   "Fixed-capacity ring buffers with byte and message modes",
		Version: version,
	}
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.AddCommand(shellCmd(), benchCmd())
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Environment variable binding, e.g. CBUF_CONFIG or CBUF_ITERATIONS
	viper.SetEnvPrefix("CBUF")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func shellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Load a .cbf host config and drive its buffers interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile := viper.GetString("config")
			if configFile == "" {
				return fmt.Errorf("usage: cbuf shell --config <cbf file>")
			}

			logger, err := newLogger(viper.GetString("log-level"))
			if err != nil {
				return err
			}
			defer logger.Sync()

			config, err := cbconfig.ParseConfig(configFile)
			if err != nil {
				return err
			}

			// 1. build the buffers and links, start listening
			host, err := cbhost.New(config, logger)
			if err != nil {
				return err
			}
			defer host.Close()
			if err := host.Start(); err != nil {
				return err
			}

			// 2. run the repl
			return host.Repl().Run(repl.RunOptions{
				Prompt:      "> ",
				HistoryFile: viper.GetString("history"),
			})
		},
	}
	cmd.Flags().String("config", "", "Path to the .cbf config file")
	cmd.Flags().String("history", "", "File to keep shell history in")
	viper.BindPFlag("config", cmd.Flags().Lookup("config"))
	viper.BindPFlag("history", cmd.Flags().Lookup("history"))
	return cmd
}

func benchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time tight write/read and writemsg/readmsg loops",
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := bench.Run(bench.Config{
				Capacity:   viper.GetInt("capacity"),
				Iterations: viper.GetInt("iterations"),
				Payload:    []byte(viper.GetString("payload")),
			})
			for _, r := range results {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return err
		},
	}
	cmd.Flags().Int("capacity", 48, "Buffer capacity in bytes")
	cmd.Flags().Int("iterations", 1000000, "Rounds per loop")
	cmd.Flags().String("payload", "Hello", "Bytes written each round")
	viper.BindPFlag("capacity", cmd.Flags().Lookup("capacity"))
	viper.BindPFlag("iterations", cmd.Flags().Lookup("iterations"))
	viper.BindPFlag("payload", cmd.Flags().Lookup("payload"))
	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level = zap.NewAtomicLevelAt(lvl)
	logConfig.OutputPaths = []string{"stderr"}
	return logConfig.Build()
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/siherrmann/radar"
	"github.com/siherrmann/radar/helper"
	"github.com/siherrmann/radar/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	cfgFile string
	v       = viper.New()
	rootCmd = &cobra.Command{
		Use:   "radar",
		Short: "Radar: market signal knowledge graph",
		Long: `Radar ingests market signals from the web, files or stdin, extracts
companies, technologies, people, markets and trends into a knowledge graph
stored in PostgreSQL with pgvector, and answers questions from the closest signals.

Database settings are read from DB_* environment variables or a .env file.`,
		SilenceUsage: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./.radar.yaml or $HOME/.radar.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "write logs to this rotating file instead of stderr")
	flags.Int("dimension", model.DefaultDimension, "embedding dimension")
	flags.String("embedder", "local", "embedding provider (local, openai, ollama)")

	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log.file", flags.Lookup("log-file"))
	_ = v.BindPFlag("embedding.dimension", flags.Lookup("dimension"))
	_ = v.BindPFlag("providers.embedder", flags.Lookup("embedder"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigType("yaml")
		v.SetConfigName(".radar")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	}
}

// newLogger builds the slog logger of the CLI. Console output goes through
// charmbracelet/log, a log file is rotated by lumberjack.
func newLogger(level string, file string, stderr io.Writer) *slog.Logger {
	parsed, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = log.InfoLevel
	}

	options := log.Options{
		ReportTimestamp: true,
		Level:           parsed,
	}

	out := stderr
	if file != "" {
		out = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}
		options.Formatter = log.LogfmtFormatter
	}

	return slog.New(log.NewWithOptions(out, options))
}

// openRadar connects to the database. withPipeline also loads the models.
func openRadar(cmd *cobra.Command, withPipeline bool) (*radar.Radar, error) {
	config, err := loadConfig(v)
	if err != nil {
		return nil, err
	}

	logger := newLogger(v.GetString("log.level"), v.GetString("log.file"), cmd.ErrOrStderr())
	slog.SetDefault(logger)

	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		return nil, err
	}

	r, err := radar.NewRadar(dbConfig, config, logger)
	if err != nil {
		return nil, err
	}

	if withPipeline {
		err = r.UseDefaultPipeline()
		if err != nil {
			_ = r.Close()
			return nil, err
		}
	}

	return r, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

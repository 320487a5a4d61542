package main

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"modelgw/internal/config"
	"modelgw/internal/registry"
)

// app is the state shared by all subcommands once flags are parsed.
type app struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string

	cfg config.Config
	log zerolog.Logger
}

func buildRootCmd() *cobra.Command { return buildRootCmdWith(&app{}) }

// buildRootCmdWith constructs the command tree around a.
func buildRootCmdWith(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "modelgw",
		Short:         "OpenAI-compatible gateway in front of LLM workers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (.yaml, .yml, .json, .toml); MODELGW_* env vars override it")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Dotenv file loaded before reading the environment (missing file is ignored)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: json|console (overrides config)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.init(cmd.ErrOrStderr())
	}

	root.AddCommand(newServeCmd(a), newModelsCmd(a), newRenderCmd(a))
	return root
}

// init loads the dotenv file and configuration, then builds the logger.
func (a *app) init(logOut io.Writer) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	var err error
	if a.configPath != "" {
		a.cfg, err = config.Load(a.configPath)
	} else {
		a.cfg, err = config.FromEnv()
	}
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		a.cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		a.cfg.LogFormat = a.logFormat
	}
	a.log = newLogger(logOut, a.cfg.LogLevel, a.cfg.LogFormat)
	return nil
}

func (a *app) loadRegistry() (*registry.Registry, error) {
	reg, err := registry.LoadDir(a.cfg.ModelsDir)
	if err != nil {
		return nil, err
	}
	a.log.Info().Str("models_dir", a.cfg.ModelsDir).Int("models", reg.Len()).Msg("registry loaded")
	return reg, nil
}

// newLogger builds the process logger. Unknown levels fall back to info.
func newLogger(out io.Writer, level, format string) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: out, NoColor: true}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "modelgw").Logger()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/panesync/panesync/internal/config"
	"github.com/panesync/panesync/internal/task"
	"github.com/panesync/panesync/internal/utils"
	"github.com/panesync/panesync/internal/version"
	"github.com/panesync/panesync/internal/workspace"
)

const configFileName = "config"

var home, _ = os.UserHomeDir()

// appLog is the per-run application log file, opened once the workspace
// flag is known and closed on exit.
var appLog io.Closer

var rootCmd = &cobra.Command{
	Use:     "panesync",
	Short:   "Copy files and folders between panes with robocopy",
	Version: version.Detailed(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}

		// file logging lives under the resolved workspace, so it must
		// wait until the --workspace flag has been read
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		closer, err := setupLogging(ws)
		if err != nil {
			return fmt.Errorf("setup logging: %w", err)
		}
		appLog = closer
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().SortFlags = false
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "panesync config file")
	rootCmd.PersistentFlags().StringP("workspace", "w", workspace.DefaultRoot(), "panesync workspace directory")
}

func main() {
	// console-only until the workspace is resolved
	slog.SetDefault(slog.New(newConsoleLogHandler()))

	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if appLog != nil {
		appLog.Close()
	}
	if err != nil {
		if errors.Is(err, task.ErrTaskCanceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func newConsoleLogHandler() slog.Handler {
	return tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
}

// setupLogging opens the workspace's application log file, truncated per
// run, and installs a default logger fanning out to the console and the
// file. The returned closer flushes and closes the file.
func setupLogging(ws *workspace.Workspace) (io.Closer, error) {
	logFile := ws.AppLogPath()
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	// Create new log file for this instance
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logInterceptor := utils.NewLogInterceptor(file)
	fileHandler := slog.NewTextHandler(logInterceptor, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// Do not include time as it is added by the log interceptor.
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	multiLogHandler := utils.NewMultiLogHandler(newConsoleLogHandler(), fileHandler)
	slog.SetDefault(slog.New(multiLogHandler))

	return &logCloser{interceptor: logInterceptor, file: file}, nil
}

type logCloser struct {
	interceptor *utils.LogInterceptor
	file        *os.File
}

func (c *logCloser) Close() error {
	cerr := c.interceptor.Close()
	if err := c.file.Close(); err != nil {
		return err
	}
	return cerr
}

func loadConfig(cmd *cobra.Command) error {
	// local .env overrides, ignored when absent
	_ = godotenv.Load()

	// config path
	if flag := cmd.Flag("config"); flag != nil && flag.Changed {
		viper.SetConfigFile(flag.Value.String())
	} else {
		viper.AddConfigPath(filepath.Join(home, workspace.DefaultDirName))
		viper.AddConfigPath(filepath.Join(home, ".config/panesync"))
		viper.SetConfigName(configFileName)
		viper.SetConfigType("json")
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, ok := err.(viper.ConfigFileNotFoundError)
		if !enoent && !ok {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	// Bind flags to viper
	if flag := cmd.Flag("workspace"); flag != nil {
		viper.BindPFlag("workspace_dir", flag)
	}

	// Set up environment variables
	viper.SetEnvPrefix("PANESYNC")
	viper.AutomaticEnv()

	return nil
}

// effectiveConfig assembles the runtime config from viper's merged view of
// flags, environment and the config file.
func effectiveConfig() (*config.Config, error) {
	cfg := config.Default()
	cfg.Path = viper.ConfigFileUsed()

	if viper.IsSet("target_dir") {
		cfg.TargetDir = viper.GetString("target_dir")
	}
	if viper.IsSet("threads") {
		cfg.Threads = viper.GetInt("threads")
	}
	if viper.IsSet("byte_progress") {
		cfg.ByteProgress = viper.GetBool("byte_progress")
	}
	if viper.IsSet("history_limit") {
		cfg.HistoryLimit = viper.GetInt("history_limit")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openWorkspace() (*workspace.Workspace, error) {
	root := viper.GetString("workspace_dir")
	if root == "" {
		root = workspace.DefaultRoot()
	}
	return workspace.New(root)
}

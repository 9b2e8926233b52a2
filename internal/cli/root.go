// Package cli wires the snippyvault commands: the reference vault server and
// the client commands that manage a user's snippets through it.
package cli

import (
	"errors"
	"io"

	"github.com/MarcoPoloResearchLab/snippyvault/internal/config"
	"github.com/MarcoPoloResearchLab/snippyvault/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const configName = "snippyvault"

type application struct {
	viper   *viper.Viper
	cfgFile string
	out     io.Writer
	in      io.Reader
	config  config.AppConfig
}

// NewRootCommand builds the command tree. Command output goes to out; stdin
// feeds `add --content -`.
func NewRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	app := &application{
		viper: config.NewViper(),
		in:    in,
		out:   out,
	}

	rootCmd := &cobra.Command{
		Use:          "snippyvault",
		Short:        "Personal snippet vault",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.initConfig()
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetIn(in)

	app.setupFlags(rootCmd)

	rootCmd.AddCommand(
		newServeCommand(app),
		newLoginCommand(app),
		newLogoutCommand(app),
		newListCommand(app),
		newTagsCommand(app),
		newAddCommand(app),
		newEditCommand(app),
		newDeleteCommand(app),
		newMoveCommand(app),
		newShowCommand(app),
	)
	return rootCmd
}

func (a *application) setupFlags(cmd *cobra.Command) {
	defaults := config.NewViper()
	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "Path to configuration file")
	flags.String("http-address", defaults.GetString("http.address"), "HTTP listen address for serve")
	flags.String("database-path", defaults.GetString("database.path"), "SQLite database path for serve")
	flags.String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	flags.String("log-format", defaults.GetString("log.format"), "Server log encoding (json, console)")
	flags.String("api-base-url", defaults.GetString("api.base_url"), "Vault API base URL")
	flags.Duration("api-timeout", defaults.GetDuration("api.timeout"), "Vault API request timeout")
	flags.String("session-path", defaults.GetString("session.path"), "Session file location")

	a.bindFlag(cmd, "http.address", "http-address")
	a.bindFlag(cmd, "database.path", "database-path")
	a.bindFlag(cmd, "log.level", "log-level")
	a.bindFlag(cmd, "log.format", "log-format")
	a.bindFlag(cmd, "api.base_url", "api-base-url")
	a.bindFlag(cmd, "api.timeout", "api-timeout")
	a.bindFlag(cmd, "session.path", "session-path")
}

func (a *application) bindFlag(cmd *cobra.Command, key, flag string) {
	if err := a.viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func (a *application) initConfig() error {
	if a.cfgFile != "" {
		a.viper.SetConfigFile(a.cfgFile)
	} else {
		a.viper.SetConfigName(configName)
		a.viper.AddConfigPath(".")
	}

	if err := a.viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &configNotFound) {
			return err
		}
	}

	loaded, err := config.Load(a.viper)
	if err != nil {
		return err
	}
	a.config = loaded
	return nil
}

// clientLogger writes human-readable diagnostics to stderr.
func (a *application) clientLogger() *zap.Logger {
	logger, err := logging.NewLogger(a.config.LogLevel, "console")
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"promptforge/src/catalog"
	"promptforge/src/composer"
	"promptforge/src/config"
	"promptforge/src/database"
	perrors "promptforge/src/errors"
	"promptforge/src/logger"
	"promptforge/src/templates"
)

var (
	// Config file
	cfgFile string
	logMode string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "promptforge",
	Short: "Compose image-generation prompts from curated categories",
	Long: `promptforge builds image-generation prompts from six categories
(subject, style, composition, environment, lighting, technical), each filled
from a curated option catalog or with free text, and keeps reusable templates.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// Catalog load failures exit with status 2 since no command can run without
// option data.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		if !perrors.IsRecoverable(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/promptforge/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logMode, "log", "", "log mode: dev, prod or quiet")

	viper.BindPFlag("log.mode", rootCmd.PersistentFlags().Lookup("log"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	defaults := config.DefaultSettings()
	viper.SetDefault("prompt.default_mode", defaults.Prompt.DefaultMode)
	viper.SetDefault("prompt.max_length", defaults.Prompt.MaxLength)
	viper.SetDefault("catalog.dir", defaults.Catalog.Dir)
	viper.SetDefault("templates.backend", defaults.Templates.Backend)
	viper.SetDefault("templates.dir", defaults.Templates.Dir)
	viper.SetDefault("templates.database", defaults.Templates.Database)
	viper.SetDefault("log.mode", defaults.Log.Mode)

	// .env in the working directory or config dir may carry PROMPTFORGE_* values
	_ = godotenv.Load()
	if dir, err := config.GetConfigDir(); err == nil {
		_ = godotenv.Load(filepath.Join(dir, ".env"))
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else if path, err := config.GetConfigFile(); err == nil {
		viper.SetConfigFile(path)
	}
	viper.SetConfigType("toml")

	// Environment variables
	viper.SetEnvPrefix("PROMPTFORGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: failed to read config: %v\n", err)
	}
}

// loadSettings rejects a malformed config file, then applies whatever viper
// resolved from the file, flags and PROMPTFORGE_* variables.
func loadSettings() (*config.Settings, error) {
	if _, err := config.LoadSettings(viper.ConfigFileUsed()); err != nil {
		return nil, err
	}
	return loadSettingsFromViper()
}

// loadSettingsFromViper builds validated settings from viper's merged view.
func loadSettingsFromViper() (*config.Settings, error) {
	settings := config.DefaultSettings()
	settings.Prompt.DefaultMode = viper.GetString("prompt.default_mode")
	settings.Prompt.MaxLength = viper.GetInt("prompt.max_length")
	settings.Catalog.Dir = viper.GetString("catalog.dir")
	settings.Templates.Backend = viper.GetString("templates.backend")
	settings.Templates.Dir = viper.GetString("templates.dir")
	settings.Templates.Database = viper.GetString("templates.database")
	settings.Log.Mode = viper.GetString("log.mode")

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// app bundles the collaborators a command needs.
type app struct {
	settings *config.Settings
	log      *logger.Logger
	catalog  *catalog.Catalog
	engine   *composer.Engine
	store    *templates.Store
	closers  []func() error
}

func newApp() (*app, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(settings.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	c, err := catalog.LoadDir(settings.Catalog.Dir, log)
	if err != nil {
		log.Error("catalog load failed", "dir", settings.Catalog.Dir, "error", err)
		log.Sync()
		return nil, err
	}

	return &app{
		settings: settings,
		log:      log,
		catalog:  c,
		engine:   composer.NewEngine(c, settings.Prompt.MaxLength),
	}, nil
}

// openStore attaches the configured template backend.
func (a *app) openStore() error {
	log := a.log.With("backend", a.settings.Templates.Backend)

	var backend templates.Backend
	switch a.settings.Templates.Backend {
	case config.BackendLibSQL:
		db, err := database.NewTursoDB(a.settings.Templates.Database, log)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		backend = db
	default:
		fb, err := templates.NewFileBackend(a.settings.Templates.Dir, log)
		if err != nil {
			return err
		}
		backend = fb
	}
	a.store = templates.NewStore(backend, a.engine, log)
	return nil
}

func (a *app) Close() {
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			a.log.Warn("close failed", "error", err)
		}
	}
	a.log.Sync()
}

// defaultMode returns the --mode flag value or the configured default.
func (a *app) defaultMode(flag string) (catalog.Mode, error) {
	if flag == "" {
		flag = a.settings.Prompt.DefaultMode
	}
	return catalog.ParseMode(flag)
}

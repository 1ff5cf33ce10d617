package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"promptforge/src/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect promptforge configuration",
	Long: `Inspect promptforge configuration settings.

Values come from the config file, then PROMPTFORGE_* environment variables
(PROMPTFORGE_TEMPLATES_BACKEND=libsql overrides templates.backend).

Examples:
  promptforge config get templates.backend
  promptforge config set templates.backend libsql
  promptforge config list
  promptforge config path`,
}

// configGetCmd represents the config get command
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]
		value := viper.Get(key)
		if value == nil {
			fmt.Printf("Key '%s' not found\n", key)
			os.Exit(1)
		}
		fmt.Println(value)
	},
}

// configSetCmd represents the config set command
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		value := parseConfigValue(args[1])

		viper.Set(key, value)

		// Reject values the settings loader would refuse on the next run
		if _, err := loadSettingsFromViper(); err != nil {
			return err
		}

		configFile := viper.ConfigFileUsed()
		if configFile == "" {
			path, err := config.GetConfigFile()
			if err != nil {
				return err
			}
			configFile = path
		}
		if err := config.EnsureDirs(filepath.Dir(configFile)); err != nil {
			return err
		}

		if err := writeConfigValue(configFile, key, value); err != nil {
			return err
		}

		fmt.Printf("Set %s = %v\n", key, value)
		fmt.Printf("Config saved to %s\n", configFile)
		return nil
	},
}

func parseConfigValue(value string) interface{} {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return value
}

// writeConfigValue sets key in the config file, keeping only what the file
// already held. Defaults and PROMPTFORGE_* values are never written back.
func writeConfigValue(configFile, key string, value interface{}) error {
	fileCfg := viper.New()
	fileCfg.SetConfigFile(configFile)
	fileCfg.SetConfigType("toml")
	if err := fileCfg.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read config: %w", err)
	}

	fileCfg.Set(key, value)
	if err := fileCfg.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// configListCmd represents the config list command
var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration values",
	Run: func(cmd *cobra.Command, args []string) {
		settings := viper.AllSettings()

		// Flatten nested maps
		flattened := flattenMap("", settings)

		var keys []string
		for k := range flattened {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		if len(keys) == 0 {
			fmt.Println("No configuration settings found")
			return
		}

		fmt.Println("Configuration settings:")
		for _, key := range keys {
			fmt.Printf("  %s = %v\n", key, flattened[key])
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			if _, err := os.Stat(configFile); err == nil {
				fmt.Printf("\nConfig file: %s\n", configFile)
			}
		}
	},
}

// configPathCmd represents the config path command
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show where promptforge reads and writes files",
	RunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := config.GetConfigDir()
		if err != nil {
			return err
		}
		dataDir, err := config.GetDataDir()
		if err != nil {
			return err
		}
		settings, err := loadSettings()
		if err != nil {
			return err
		}

		fmt.Printf("config dir:   %s\n", configDir)
		fmt.Printf("config file:  %s\n", viper.ConfigFileUsed())
		fmt.Printf("data dir:     %s\n", dataDir)
		fmt.Printf("catalog dir:  %s\n", settings.Catalog.Dir)
		switch settings.Templates.Backend {
		case config.BackendLibSQL:
			fmt.Printf("templates:    %s (libsql)\n", settings.Templates.Database)
		default:
			fmt.Printf("templates:    %s (file)\n", settings.Templates.Dir)
		}
		return nil
	},
}

// flattenMap flattens a nested map into dot-notation keys
func flattenMap(prefix string, m map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		switch v := value.(type) {
		case map[string]interface{}:
			for k, val := range flattenMap(fullKey, v) {
				result[k] = val
			}
		case []interface{}:
			var items []string
			for _, item := range v {
				items = append(items, fmt.Sprintf("%v", item))
			}
			result[fullKey] = strings.Join(items, ", ")
		default:
			result[fullKey] = value
		}
	}

	return result
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configPathCmd)
}

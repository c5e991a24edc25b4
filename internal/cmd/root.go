// Package cmd defines the clipinsight command-line interface.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lumeng-dev/clipinsight/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "clipinsight",
	Short: "Streaming analysis pipelines for short-video content",
	Long: `Clipinsight runs multi-step analysis pipelines over short-video
content: comment analysis, audience analysis and chat replies. Results
stream to the terminal as they are generated and are cached locally.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/clipinsight/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/clipinsight")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CLIPINSIGHT")
	// Replace dots with underscores for nested keys in env vars
	// e.g., CLIPINSIGHT_LLM_API_KEY for llm.api_key
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

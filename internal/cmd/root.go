// Package cmd implements the debatecast command line.
package cmd

import (
	"github.com/joho/godotenv"
	"github.com/koscakluka/ema-debate/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "debatecast",
	Short: "Watch AI models debate a prediction market",
	Long: `Debatecast starts a debate between AI models on a prediction market and
presents it turn by turn: each turn appears once the previous one has been
heard, voice clips play one at a time and the final summary is fetched when
the debate is over.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default is $HOME/.config/debatecast/config.yaml)")
	flags.String("api-url", "", "debate server base url")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-file", "", "write logs to this file")

	_ = v.BindPFlag("api.base_url", flags.Lookup("api-url"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log.file", flags.Lookup("log-file"))
}

func initConfig() {
	// A missing .env file is fine
	_ = godotenv.Load()

	config.SetDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.config/debatecast")
	}
	config.BindEnv(v)

	// Read config file if it exists (ignore error if not found)
	_ = v.ReadInConfig()
}

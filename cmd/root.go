package cmd

import (
	"errors"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "matchboard"
)

type Config struct {
	BaseURL     string         `mapstructure:"base-url"`
	TokenFile   string         `mapstructure:"token-file"`
	UserAgent   string         `mapstructure:"user-agent"`
	MinScore    float64        `mapstructure:"min-score"`
	DownloadDir string         `mapstructure:"download-dir"`
	Sort        string         `mapstructure:"sort"`
	Filters     *FiltersConfig `mapstructure:"filters"`
}

type FiltersConfig struct {
	Location  string   `mapstructure:"location"`
	Language  string   `mapstructure:"language"`
	MinSalary *float64 `mapstructure:"min-salary"`
	MaxSalary *float64 `mapstructure:"max-salary"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "matchboard is a console for browsing match results from a JobMatcher service",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// A local .env may carry the service address and token path.
	_ = godotenv.Load()

	if err := viper.BindEnv("token-file", "MATCHBOARD_TOKEN_FILE"); err != nil {
		log.Fatalf("binding MATCHBOARD_TOKEN_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("base-url", "MATCHBOARD_BASE_URL"); err != nil {
		log.Fatalf("binding MATCHBOARD_BASE_URL environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is matchboard.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for run command now. If there is no config, we can skip initialization
	if runCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// The service address and defaults work without a config file, but a
	// file that exists and fails to parse is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Filters == nil {
		config.Filters = &FiltersConfig{}
	}

	return config, nil
}

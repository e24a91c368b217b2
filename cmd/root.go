package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "jobfit"
	envPrefix = "JOBFIT"
)

type Config struct {
	UserAgent string        `mapstructure:"user-agent"`
	Gemini    *GeminiConfig `mapstructure:"gemini" validate:"required"`
	Cache     *CacheConfig  `mapstructure:"cache" validate:"required"`
	Fetch     *FetchConfig  `mapstructure:"fetch" validate:"required"`
	Match     *MatchConfig  `mapstructure:"match" validate:"required"`
	Server    *ServerConfig `mapstructure:"server" validate:"required"`
	Watch     *WatchConfig  `mapstructure:"watch" validate:"required"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key" json:"-"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries" validate:"gte=0"`
	MaxLogLength int    `mapstructure:"max-log-length" validate:"gte=0"`
}

type CacheConfig struct {
	Backend  string        `mapstructure:"backend" validate:"oneof=file redis"`
	Dir      string        `mapstructure:"dir"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gt=0"`
	RedisURL string        `mapstructure:"redis-url" json:"-" validate:"required_if=Backend redis"`
}

type FetchConfig struct {
	MaxPostings int           `mapstructure:"max-postings" validate:"gte=1"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type MatchConfig struct {
	BatchSize int           `mapstructure:"batch-size" validate:"gte=1"`
	Top       int           `mapstructure:"top" validate:"gte=1"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen" validate:"required"`
}

type WatchConfig struct {
	Schedule string   `mapstructure:"schedule" validate:"required"`
	Boards   []string `mapstructure:"boards"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jobfit ranks the openings of a company job board against your resume",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobfit.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("user-agent", "spigell/jobfit")

	v.SetDefault("gemini.api-key", "")
	v.SetDefault("gemini.api-key-file", "")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.max-retries", 3)
	v.SetDefault("gemini.max-log-length", 200)

	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.dir", ".cache")
	v.SetDefault("cache.ttl", 180*time.Minute)
	v.SetDefault("cache.redis-url", "redis://localhost:6379/0")

	v.SetDefault("fetch.max-postings", 200)
	v.SetDefault("fetch.timeout", 30*time.Second)

	v.SetDefault("match.batch-size", 10)
	v.SetDefault("match.top", 10)
	v.SetDefault("match.timeout", time.Duration(0))

	v.SetDefault("server.listen", ":8080")

	v.SetDefault("watch.schedule", "@every 3h")
	v.SetDefault("watch.boards", []string{})
}

func initConfig() {
	if versionCmd.CalledAs() != "" {
		return
	}

	bindEnv(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// The config file is optional unless given explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

// bindEnv lets JOBFIT_<SECTION>_<KEY> override any config key.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func getConfig() (*Config, error) {
	return loadConfig(viper.GetViper())
}

func loadConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, err
	}

	return config, nil
}

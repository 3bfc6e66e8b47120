package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "resume-analyzer"
	envPrefix = "RESUME_ANALYZER"
)

type Config struct {
	Roles    []RoleConfig    `mapstructure:"roles"`
	AI       *AIConfig       `mapstructure:"ai"`
	Storage  *StorageConfig  `mapstructure:"storage"`
	Server   *ServerConfig   `mapstructure:"server"`
	Database *DatabaseConfig `mapstructure:"database"`
	Queue    *QueueConfig    `mapstructure:"queue"`
}

// RoleConfig is one entry of the roles list. A list keeps the name's casing,
// which viper would lower-case if roles were map keys.
type RoleConfig struct {
	Name   string   `mapstructure:"name"`
	Skills []string `mapstructure:"skills"`
}

type AIConfig struct {
	Provider     string             `mapstructure:"provider"`
	Timeout      time.Duration      `mapstructure:"timeout"`
	MaxLogLength int                `mapstructure:"max-log-length"`
	Suggestions  *SuggestionsConfig `mapstructure:"suggestions"`
	Gemini       *GeminiConfig      `mapstructure:"gemini"`
	Bedrock      *BedrockConfig     `mapstructure:"bedrock"`
}

type SuggestionsConfig struct {
	MaxTokens   int      `mapstructure:"max-tokens"`
	Temperature *float64 `mapstructure:"temperature"`
}

type GeminiConfig struct {
	APIKey         string `mapstructure:"api-key"`
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
}

type BedrockConfig struct {
	Region         string `mapstructure:"region"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
}

type StorageConfig struct {
	Bucket        string        `mapstructure:"bucket"`
	Region        string        `mapstructure:"region"`
	Endpoint      string        `mapstructure:"endpoint"`
	PathStyle     bool          `mapstructure:"path-style"`
	AccessKey     string        `mapstructure:"access-key"`
	SecretKey     string        `mapstructure:"secret-key"`
	SecretKeyFile string        `mapstructure:"secret-key-file"`
	DownloadDir   string        `mapstructure:"download-dir"`
	PresignTTL    time.Duration `mapstructure:"presign-ttl"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Listen       string        `mapstructure:"listen"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type QueueConfig struct {
	URL             string `mapstructure:"url"`
	Name            string `mapstructure:"name"`
	UpdatesExchange string `mapstructure:"updates-exchange"`
	Workers         int    `mapstructure:"workers"`
	DialAttempts    int    `mapstructure:"dial-attempts"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-analyzer scores resumes against a role and a job description and suggests improvements",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-analyzer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	configure(viper.GetViper())
}

// envKeys have no default but must still be visible to Unmarshal through the environment.
var envKeys = []string{
	"ai.gemini.api-key", "ai.gemini.api-key-file", "ai.gemini.model", "ai.gemini.embedding-model",
	"ai.bedrock.region", "ai.bedrock.model", "ai.bedrock.embedding-model",
	"ai.suggestions.max-tokens", "ai.suggestions.temperature",
	"storage.bucket", "storage.region", "storage.endpoint", "storage.path-style",
	"storage.access-key", "storage.secret-key", "storage.secret-key-file", "storage.download-dir",
	"database.url", "queue.url",
}

func configure(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			log.Fatalf("binding %s to the environment: %v", key, err)
		}
	}

	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("ai.max-log-length", 200)
	v.SetDefault("storage.timeout", 30*time.Second)
	v.SetDefault("storage.presign-ttl", 15*time.Minute)
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read-timeout", 30*time.Second)
	v.SetDefault("server.write-timeout", 120*time.Second)
	v.SetDefault("queue.name", "analyses")
	v.SetDefault("queue.updates-exchange", "analysis_updates")
	v.SetDefault("queue.workers", 3)
	v.SetDefault("queue.dial-attempts", 5)
}

func initConfig() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Every key has a default or an env override, so the file is optional unless named explicitly.
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Suggestions == nil {
		config.AI.Suggestions = &SuggestionsConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.AI.Bedrock == nil {
		config.AI.Bedrock = &BedrockConfig{}
	}
	if config.Storage == nil {
		config.Storage = &StorageConfig{}
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}
	if config.Database == nil {
		config.Database = &DatabaseConfig{}
	}
	if config.Queue == nil {
		config.Queue = &QueueConfig{}
	}

	return config, nil
}

package cmd

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/config"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/store"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
)

const (
	configName = ".narrativa"
	envPrefix  = "NARRATIVA"
)

// GlobalAppConfig holds the global application configuration instance.
var GlobalAppConfig types.AppConfig

// validate is a single instance of Validate, it caches struct info
var validate = validator.New()

// InitConfig reads in config file and ENV variables if set.
func InitConfig() {
	if err := loadConfig(); err != nil {
		HandleFatalError("No se pudo cargar la configuración.", err)
	}
}

// setDefaults registers every key so env overrides reach Unmarshal.
// store.path is resolved after loading, see config.GetDataPath.
func setDefaults() {
	viper.SetDefault("script", "config/guion.toml")

	viper.SetDefault("flow.profile", string(config.ProfileFull))
	viper.SetDefault("flow.consent", true)
	viper.SetDefault("flow.completionPolicy", "substring")
	viper.SetDefault("flow.tieBreak", "explicit")
	viper.SetDefault("flow.answerSource", "extracted")
	viper.SetDefault("flow.surveyUrl", "")

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "")
	viper.SetDefault("llm.baseURL", "")
	viper.SetDefault("llm.temperature", 0.3)
	viper.SetDefault("llm.requestTimeoutSeconds", 60)

	viper.SetDefault("store.sinks", []string{store.SinkSQLite})
	viper.SetDefault("store.sheets.range", store.DefaultSheetsRange)

	viper.SetDefault("server.port", 5001)
	viper.SetDefault("server.origins", []string{"http://localhost:5173"})

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.journal", false)
}

func loadConfig() error {
	const op = "load config"

	// A missing .env file is fine.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if info, err := os.Stat(config.ProjectDirName); err == nil && info.IsDir() {
			viper.AddConfigPath(config.ProjectDirName)
		}
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(configName)
	}

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("using config file", "path", viper.ConfigFileUsed())
	} else {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.ConfigurationError(op, "read "+viper.ConfigFileUsed(), err)
		}
		slog.Debug("no config file found, using defaults and environment")
	}

	setDefaults()

	var cfg types.AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.ConfigurationError(op, "unmarshal", err)
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = config.GetDataPath()
	}
	if cfg.Store.HasSink(store.SinkJSONL) && cfg.Store.JSONLPath == "" {
		cfg.Store.JSONLPath = config.GetJSONLPath()
	}

	if err := validate.Struct(&cfg); err != nil {
		return types.ConfigurationError(op, "invalid configuration", err)
	}
	GlobalAppConfig = cfg
	return nil
}

// GetConfig returns a pointer to the global types.AppConfig instance.
func GetConfig() *types.AppConfig {
	return &GlobalAppConfig
}

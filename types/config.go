package types

// AppConfig represents the complete application configuration
type AppConfig struct {
	Verbose bool         `mapstructure:"verbose"`
	Config  string       `mapstructure:"config"`
	Script  string       `mapstructure:"script" validate:"required"`
	Flow    FlowConfig   `mapstructure:"flow" validate:"required"`
	LLM     LLMConfig    `mapstructure:"llm" validate:"required"`
	Store   StoreConfig  `mapstructure:"store" validate:"required"`
	Server  ServerConfig `mapstructure:"server"`
	Log     LogConfig    `mapstructure:"log"`
}

// FlowConfig selects which optional stages run and which policies the core applies.
type FlowConfig struct {
	Profile          string `mapstructure:"profile" validate:"required,oneof=simple full"`
	Consent          bool   `mapstructure:"consent"`
	CompletionPolicy string `mapstructure:"completionPolicy" validate:"required,oneof=substring trailing"`
	TieBreak         string `mapstructure:"tieBreak" validate:"required,oneof=explicit fixed_priority"`
	AnswerSource     string `mapstructure:"answerSource" validate:"required,oneof=extracted transcript"`
	SurveyURL        string `mapstructure:"surveyUrl" validate:"omitempty,url"`
}

// LLMConfig holds configuration for LLM integration
type LLMConfig struct {
	Provider    string  `mapstructure:"provider" validate:"required,oneof=openai openai-responses ollama anthropic gemini"`
	Model       string  `mapstructure:"model" validate:"omitempty,min=1"`
	APIKey      string  `mapstructure:"apiKey"`
	BaseURL     string  `mapstructure:"baseURL" validate:"omitempty,url"`
	Temperature float64 `mapstructure:"temperature" validate:"min=0,max=2"`
	// RequestTimeoutSeconds bounds every single generation call
	RequestTimeoutSeconds int `mapstructure:"requestTimeoutSeconds" validate:"min=5,max=600"`
}

// StoreConfig holds persistence settings for saved narratives and session snapshots.
type StoreConfig struct {
	Path      string       `mapstructure:"path" validate:"required"`
	Sinks     []string     `mapstructure:"sinks" validate:"dive,oneof=sqlite jsonl sheets"`
	JSONLPath string       `mapstructure:"jsonlPath"`
	Sheets    SheetsConfig `mapstructure:"sheets"`
}

// SheetsConfig points the spreadsheet sink at a Google Sheet.
type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheetId"`
	Range           string `mapstructure:"range"`
	CredentialsFile string `mapstructure:"credentialsFile"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port    int      `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Origins []string `mapstructure:"origins"`
}

// LogConfig controls structured logging outputs.
type LogConfig struct {
	Level   string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	File    string `mapstructure:"file"`
	Journal bool   `mapstructure:"journal"`
}

// HasSink reports whether the named sink is enabled.
func (s StoreConfig) HasSink(name string) bool {
	for _, sink := range s.Sinks {
		if sink == name {
			return true
		}
	}
	return false
}

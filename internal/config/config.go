package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Supported completion providers.
const (
	ProviderGroq   = "groq"
	ProviderArk    = "ark"
	ProviderGemini = "gemini"
)

// Journal failure detection modes accepted by JOURNAL_FAILURE_DETECTION.
const (
	DetectionLexical = "lexical"
	DetectionTyped   = "typed"
)

// Response policies for failed completions.
const (
	PolicyText       = "text"
	PolicyStructured = "structured"
)

// DefaultGroqURL is the OpenAI-compatible chat completions endpoint.
const DefaultGroqURL = "https://api.groq.com/openai/v1/chat/completions"

// ErrMissingCredential is returned when the selected provider has no API credential.
var ErrMissingCredential = errors.New("missing AI credential")

// Config aggregates all service settings.
type Config struct {
	Server      ServerConfig
	AI          AIConfig
	Journal     JournalConfig
	HTTP        HTTPConfig
	Log         LogConfig
	PersonaFile string
}

// Load reads configuration from environment variables.
// It fails when the credential for the selected provider is absent.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	journal, err := loadJournalConfig()
	if err != nil {
		return nil, err
	}

	httpCfg, err := loadHTTPConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		AI:      ai,
		Journal: journal,
		HTTP:    httpCfg,
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "console"),
		},
		PersonaFile: strings.TrimSpace(os.Getenv("PERSONA_FILE")),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if _, err := strconv.Atoi(port); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: "0.0.0.0:" + port}, nil
}

// AIConfig describes the completion provider.
type AIConfig struct {
	Provider  string
	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string
	Timeout   time.Duration

	// Optional overrides of the persona defaults.
	Temperature      *float64
	MaxTokens        *int
	JournalMaxTokens *int
}

// Enabled reports whether the credential required by the provider is present.
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderArk:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	default:
		return c.APIKey != ""
	}
}

// NewChatModel builds the Ark chat model used by the ark provider.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if c.Provider != ProviderArk {
		return nil, fmt.Errorf("chat model requested for provider %q", c.Provider)
	}
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: ark needs ARK_API_KEY or ARK_ACCESS_KEY/ARK_SECRET_KEY plus a model", ErrMissingCredential)
	}

	timeout := c.Timeout
	cfg := &ark.ChatModelConfig{
		BaseURL:   c.BaseURL,
		Region:    c.Region,
		APIKey:    c.APIKey,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Model:     c.Model,
		Timeout:   &timeout,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderGroq))

	timeout, err := parseDurationEnv("AI_TIMEOUT", 30*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	journalMaxTokens, err := parseOptionalIntEnv("JOURNAL_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	cfg := AIConfig{
		Provider:         provider,
		Timeout:          timeout,
		Temperature:      temperature,
		MaxTokens:        maxTokens,
		JournalMaxTokens: journalMaxTokens,
	}

	switch provider {
	case ProviderGroq:
		cfg.APIKey = strings.TrimSpace(os.Getenv("GROQ_API_KEY"))
		cfg.Model = getEnvOrDefault("GROQ_MODEL", "gemma2-9b-it")
		cfg.BaseURL = getEnvOrDefault("GROQ_BASE_URL", DefaultGroqURL)
	case ProviderArk:
		cfg.APIKey = strings.TrimSpace(os.Getenv("ARK_API_KEY"))
		cfg.AccessKey = strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY"))
		cfg.SecretKey = strings.TrimSpace(os.Getenv("ARK_SECRET_KEY"))
		cfg.Model = getEnvOrDefault("ARK_MODEL", strings.TrimSpace(os.Getenv("Model")))
		cfg.BaseURL = getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3")
		cfg.Region = getEnvOrDefault("ARK_REGION", "cn-beijing")
	case ProviderGemini:
		cfg.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		cfg.Model = getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash")
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q", provider)
	}

	if !cfg.Enabled() {
		return AIConfig{}, fmt.Errorf("%w for provider %s", ErrMissingCredential, provider)
	}
	return cfg, nil
}

// JournalConfig controls how a failed AI summary is detected.
// Empty FailureMarkers leaves the journal service defaults in place.
type JournalConfig struct {
	FailureDetection string
	FailureMarkers   []string
}

func loadJournalConfig() (JournalConfig, error) {
	mode := strings.ToLower(getEnvOrDefault("JOURNAL_FAILURE_DETECTION", DetectionLexical))
	if mode != DetectionLexical && mode != DetectionTyped {
		return JournalConfig{}, fmt.Errorf("invalid JOURNAL_FAILURE_DETECTION value %q", mode)
	}

	return JournalConfig{FailureDetection: mode, FailureMarkers: parseListEnv("JOURNAL_FAILURE_MARKERS")}, nil
}

// HTTPConfig holds transport-level policy.
type HTTPConfig struct {
	ResponsePolicy string
	AllowedOrigins []string
}

func loadHTTPConfig() (HTTPConfig, error) {
	policy := strings.ToLower(getEnvOrDefault("RESPONSE_POLICY", PolicyText))
	if policy != PolicyText && policy != PolicyStructured {
		return HTTPConfig{}, fmt.Errorf("invalid RESPONSE_POLICY value %q", policy)
	}

	origins := parseListEnv("CORS_ALLOWED_ORIGINS")
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return HTTPConfig{ResponsePolicy: policy, AllowedOrigins: origins}, nil
}

// LogConfig selects the zap encoder and level.
type LogConfig struct {
	Level  string
	Format string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseListEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	// Plain integers are seconds.
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
		}
		return time.Duration(secs) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

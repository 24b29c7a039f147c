package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Gateway providers
const (
	ProviderEvolution = "evolution"
	ProviderTwilio    = "twilio"
)

// Config aggregates every setting the service reads at startup.
type Config struct {
	Server    ServerConfig
	OpenAI    OpenAIConfig
	Database  DatabaseConfig
	Knowledge KnowledgeConfig
	Gateway   GatewayConfig
	Buffer    BufferConfig
	Log       LogConfig
	Company   CompanyConfig

	UseMemoryStore           bool
	DisableWebhookValidation bool
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Host  string
	Port  string
	Env   string // development, staging, production
	Debug bool
}

// Addr returns host:port for fiber's Listen.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// IsProduction reports whether webhook authentication must be enforced.
func (s ServerConfig) IsProduction() bool {
	return s.Env == "production"
}

type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float32
	MaxTokens      int
	EmbeddingModel string
}

type DatabaseConfig struct {
	URL         string
	PoolSize    int
	MaxOverflow int
}

// KnowledgeConfig controls the retrieval-augmented search against pgvector.
type KnowledgeConfig struct {
	Enabled               bool
	CollectionLoteamentos string
	CollectionConstrutora string
	TopKLoteamentos       int
	TopKConstrutora       int
	MatchThreshold        float64
	EmbeddingDimensions   int
}

type GatewayConfig struct {
	Provider  string
	Evolution EvolutionConfig
	Twilio    TwilioConfig
}

type EvolutionConfig struct {
	URL      string
	Instance string
	APIKey   string
	SendRate float64 // messages per second
}

type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	WhatsAppFrom string // Format: "whatsapp:+14155238886"
}

type BufferConfig struct {
	Quiet time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// CompanyConfig feeds the agent prompts and the apology message.
type CompanyConfig struct {
	Name         string
	AgentName    string
	ContactPhone string
	Timezone     string
	// Loteamentos names the developments on sale; a name mentioned in a
	// message narrows the knowledge search to its documents.
	Loteamentos []string
}

// LoadDotEnv loads .env for local development. A missing file is not an error.
func LoadDotEnv() {
	if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("environments/.env.development"); err != nil {
			slog.Debug("no .env file found, using process environment")
		}
	}
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	r := &reader{}

	cfg := &Config{
		Server: ServerConfig{
			Host:  r.str("API_HOST", "0.0.0.0"),
			Port:  r.str("PORT", r.str("API_PORT", "8000")),
			Env:   r.oneOf("API_ENV", "development", "development", "staging", "production"),
			Debug: r.boolean("DEBUG", false),
		},
		OpenAI: OpenAIConfig{
			APIKey:         r.str("OPENAI_API_KEY", ""),
			BaseURL:        r.str("OPENAI_BASE_URL", ""),
			Model:          r.str("OPENAI_MODEL", "gpt-4-turbo-preview"),
			Temperature:    float32(r.float("OPENAI_TEMPERATURE", 0.7)),
			MaxTokens:      r.integer("OPENAI_MAX_TOKENS", 1000),
			EmbeddingModel: r.str("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		},
		Database: DatabaseConfig{
			URL:         r.str("DATABASE_URL", ""),
			PoolSize:    r.integer("DATABASE_POOL_SIZE", 10),
			MaxOverflow: r.integer("DATABASE_MAX_OVERFLOW", 20),
		},
		Knowledge: KnowledgeConfig{
			Enabled:               r.boolean("KNOWLEDGE_ENABLED", false),
			CollectionLoteamentos: r.str("KNOWLEDGE_COLLECTION_LOTEAMENTOS", "documents_loteamentos"),
			CollectionConstrutora: r.str("KNOWLEDGE_COLLECTION_CONSTRUTORA", "documents_construtora"),
			TopKLoteamentos:       r.integer("RAG_TOP_K_LOTEAMENTOS", 5),
			TopKConstrutora:       r.integer("RAG_TOP_K_CONSTRUTORA", 4),
			MatchThreshold:        r.float("RAG_MATCH_THRESHOLD", 0.7),
			EmbeddingDimensions:   r.integer("EMBEDDING_DIMENSIONS", 1536),
		},
		Gateway: GatewayConfig{
			Provider: r.oneOf("GATEWAY_PROVIDER", ProviderEvolution, ProviderEvolution, ProviderTwilio),
			Evolution: EvolutionConfig{
				URL:      strings.TrimRight(r.str("EVOLUTION_API_URL", ""), "/"),
				Instance: r.str("EVOLUTION_INSTANCE", ""),
				APIKey:   r.str("EVOLUTION_API_KEY", ""),
				SendRate: r.float("EVOLUTION_SEND_RATE", 5),
			},
			Twilio: TwilioConfig{
				AccountSID:   r.str("TWILIO_ACCOUNT_SID", ""),
				AuthToken:    r.str("TWILIO_AUTH_TOKEN", ""),
				WhatsAppFrom: r.str("TWILIO_WHATSAPP_FROM", ""),
			},
		},
		Buffer: BufferConfig{
			Quiet: time.Duration(r.integer("MESSAGE_BUFFER_SECONDS", 10)) * time.Second,
		},
		Log: LogConfig{
			Level:  r.oneOf("LOG_LEVEL", "INFO", "DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"),
			Format: r.oneOf("LOG_FORMAT", "json", "json", "console"),
		},
		Company: CompanyConfig{
			Name:         r.str("COMPANY_NAME", "Le Mans Loteamentos e Construtora"),
			AgentName:    r.str("AGENT_NAME", "Sara"),
			ContactPhone: r.str("LEMANS_IMOVEIS_PHONE", "19 2533-0370"),
			Timezone:     r.str("TIMEZONE", "America/Sao_Paulo"),
			Loteamentos:  r.list("COMPANY_LOTEAMENTOS"),
		},
		UseMemoryStore:           r.boolean("USE_MEMORY_STORE", false),
		DisableWebhookValidation: r.boolean("DISABLE_WEBHOOK_VALIDATION", false),
	}

	if r.err != nil {
		return nil, r.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.OpenAI.APIKey == "" {
		return missing("OPENAI_API_KEY")
	}
	if !c.UseMemoryStore && c.Database.URL == "" {
		return missing("DATABASE_URL")
	}
	if c.Buffer.Quiet <= 0 {
		return fmt.Errorf("invalid MESSAGE_BUFFER_SECONDS: must be positive")
	}

	switch c.Gateway.Provider {
	case ProviderEvolution:
		ev := c.Gateway.Evolution
		if ev.URL == "" {
			return missing("EVOLUTION_API_URL")
		}
		if ev.Instance == "" {
			return missing("EVOLUTION_INSTANCE")
		}
		if ev.APIKey == "" {
			return missing("EVOLUTION_API_KEY")
		}
	case ProviderTwilio:
		tw := c.Gateway.Twilio
		if tw.AccountSID == "" || tw.AuthToken == "" || tw.WhatsAppFrom == "" {
			return fmt.Errorf("missing Twilio credentials: TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_WHATSAPP_FROM are required")
		}
	}
	return nil
}

func missing(key string) error {
	return fmt.Errorf("missing required environment variable %s", key)
}

// reader keeps the first parse error so Load can report one failure after reading all keys.
type reader struct {
	err error
}

func (r *reader) fail(key, value, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid %s value %q: expected %s", key, value, want)
	}
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// list splits a comma-separated value, dropping empty items.
func (r *reader) list(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (r *reader) integer(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, "an integer")
		return def
	}
	return n
}

func (r *reader) float(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, v, "a number")
		return def
	}
	return f
}

func (r *reader) boolean(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, "true or false")
		return def
	}
	return b
}

func (r *reader) oneOf(key, def string, allowed ...string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return a
		}
	}
	r.fail(key, v, "one of "+strings.Join(allowed, ", "))
	return def
}

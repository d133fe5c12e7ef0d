package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Dialogue DialogueConfig
	Client   ClientConfig
	Storage  StorageConfig
	Persona  PersonaConfig
	Log      LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}

	addr, err := normalizeAddr(cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	if err := cfg.Dialogue.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Addr string `env:"-"`
}

// normalizeAddr 解析服务器监听地址。
func normalizeAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey      string   `env:"ARK_API_KEY"`
	AccessKey   string   `env:"ARK_ACCESS_KEY"`
	SecretKey   string   `env:"ARK_SECRET_KEY"`
	Model       string   `env:"Model"`
	BaseURL     string   `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	Region      string   `env:"ARK_REGION" envDefault:"cn-beijing"`
	Temperature *float64 `env:"ARK_TEMPERATURE"`
	TopP        *float64 `env:"ARK_TOP_P"`
	MaxTokens   *int     `env:"ARK_MAX_TOKENS"`
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

// DialogueConfig 描述对话引擎的节奏与默认值。
type DialogueConfig struct {
	TypingInterval time.Duration `env:"TYPING_INTERVAL" envDefault:"45ms"`
	SeedGreeting   string        `env:"SEED_GREETING" envDefault:"안녕하세요!"`
	HistoryLimit   int           `env:"DIALOGUE_HISTORY_LIMIT" envDefault:"10"`
	Timeout        time.Duration `env:"DIALOGUE_TIMEOUT" envDefault:"30s"`
}

func (c DialogueConfig) validate() error {
	if c.TypingInterval <= 0 {
		return fmt.Errorf("invalid TYPING_INTERVAL value: %s", c.TypingInterval)
	}
	if strings.TrimSpace(c.SeedGreeting) == "" {
		return fmt.Errorf("SEED_GREETING must not be blank")
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("invalid DIALOGUE_HISTORY_LIMIT value: %d", c.HistoryLimit)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid DIALOGUE_TIMEOUT value: %s", c.Timeout)
	}
	return nil
}

// ClientConfig 描述终端客户端连接的对话服务地址。
type ClientConfig struct {
	BaseURL string `env:"DIALOGUE_BASE_URL" envDefault:"http://localhost:8080"`
}

// StorageConfig 为空路径时使用内存存储。
type StorageConfig struct {
	Path string `env:"STORAGE_PATH"`
}

// PersonaConfig 可选的角色目录文件。
type PersonaConfig struct {
	File string `env:"PERSONA_FILE"`
}

// LogConfig 日志级别与格式（text/json）。
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// =============================================================================
// 📦 RouteFlow 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("ROUTEFLOW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/routeflow/llm"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 RouteFlow 的完整配置结构
type Config struct {
	// Engine 执行引擎配置
	Engine EngineConfig `yaml:"engine" env:"ENGINE"`

	// Providers Provider 凭据与端点覆盖
	Providers ProvidersConfig `yaml:"providers" env:"PROVIDERS"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// EngineConfig 执行引擎配置
type EngineConfig struct {
	// 单个候选调用的超时上限
	CandidateTimeout time.Duration `yaml:"candidate_timeout" env:"CANDIDATE_TIMEOUT"`
	// 无路由表约束时的生成长度上限
	DefaultMaxTokens int `yaml:"default_max_tokens" env:"DEFAULT_MAX_TOKENS"`
	// 注入每次对话的系统提示词，留空则不注入
	SystemPrompt string `yaml:"system_prompt" env:"SYSTEM_PROMPT"`
	// 分类器长上下文字符上限，0 使用内置默认值
	LongContextChars int `yaml:"long_context_chars" env:"LONG_CONTEXT_CHARS"`
}

// ProviderCred 单个 Provider 的凭据与端点覆盖
type ProviderCred struct {
	APIKey  string `yaml:"api_key" env:"API_KEY"`
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
}

// ProvidersConfig 各 Provider 的凭据配置。
// 留空的字段回落到各家约定的环境变量（OPENAI_API_KEY 等）。
type ProvidersConfig struct {
	OpenAI    ProviderCred `yaml:"openai" env:"OPENAI"`
	Anthropic ProviderCred `yaml:"anthropic" env:"ANTHROPIC"`
	Gemini    ProviderCred `yaml:"gemini" env:"GEMINI"`
	DeepSeek  ProviderCred `yaml:"deepseek" env:"DEEPSEEK"`
	Qwen      ProviderCred `yaml:"qwen" env:"QWEN"`
	Grok      ProviderCred `yaml:"grok" env:"GROK"`
	Kimi      ProviderCred `yaml:"kimi" env:"KIMI"`
	GLM       ProviderCred `yaml:"glm" env:"GLM"`
	Mistral   ProviderCred `yaml:"mistral" env:"MISTRAL"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用 Prometheus 指标端点
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 指标端点监听地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// Credentials 合并配置文件与约定环境变量，产出凭据快照。
// 配置文件显式给出的 key 优先。
func (c *Config) Credentials() llm.Credentials {
	creds := llm.CredentialsFromEnv()
	explicit := map[string]string{
		"openai":    c.Providers.OpenAI.APIKey,
		"anthropic": c.Providers.Anthropic.APIKey,
		"gemini":    c.Providers.Gemini.APIKey,
		"deepseek":  c.Providers.DeepSeek.APIKey,
		"qwen":      c.Providers.Qwen.APIKey,
		"grok":      c.Providers.Grok.APIKey,
		"kimi":      c.Providers.Kimi.APIKey,
		"glm":       c.Providers.GLM.APIKey,
		"mistral":   c.Providers.Mistral.APIKey,
	}
	for name, key := range explicit {
		if strings.TrimSpace(key) != "" {
			creds[name] = strings.TrimSpace(key)
		}
	}
	return creds
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "ROUTEFLOW",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Engine.CandidateTimeout < 0 {
		errs = append(errs, "candidate_timeout must not be negative")
	}
	if c.Engine.DefaultMaxTokens < 0 {
		errs = append(errs, "default_max_tokens must not be negative")
	}
	if c.Engine.LongContextChars < 0 {
		errs = append(errs, "long_context_chars must not be negative")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

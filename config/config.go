// Package config 加载服务配置
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"incomeinsight/llm"
	"incomeinsight/ml"
)

// DefaultAPIKeyEnv 默认的 Gemini 密钥环境变量
const DefaultAPIKeyEnv = "INCOME_GEMINI_API_KEY"

// Config 服务配置
type Config struct {
	Http      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	LLM       LLMConfig       `yaml:"llm"`
	ModelInfo ModelInfo       `yaml:"model_info"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ArtifactsConfig struct {
	Dir          string        `yaml:"dir"`
	ModelType    string        `yaml:"model_type"`
	ModelFile    string        `yaml:"model_file"`
	ScalerFile   string        `yaml:"scaler_file"`
	EncodersFile string        `yaml:"encoders_file"`
	Watch        bool          `yaml:"watch"`
	Debounce     time.Duration `yaml:"debounce"`
	// nil 表示默认要求模型声明特征顺序
	RequireFeatureOrder *bool `yaml:"require_feature_order"`
}

type LLMConfig struct {
	BaseURL         string        `yaml:"base_url"`
	Model           string        `yaml:"model"`
	APIKeyEnv       string        `yaml:"api_key_env"`
	Timeout         time.Duration `yaml:"timeout"`
	Temperature     *float64      `yaml:"temperature"`
	TopP            *float64      `yaml:"top_p"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
}

// ModelInfo 侧边栏展示的模型信息
type ModelInfo struct {
	Name     string  `yaml:"name"`
	Accuracy float64 `yaml:"accuracy"`
}

// Default 返回默认配置
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load 读取 YAML 配置文件并补齐默认值
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Http.Port == 0 {
		c.Http.Port = 8080
	}
	if c.Http.Timeout <= 0 {
		c.Http.Timeout = 60 * time.Second
	}
	if len(c.Http.AllowedOrigins) == 0 {
		c.Http.AllowedOrigins = []string{"*"}
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 28
	}

	if c.Artifacts.Dir == "" {
		c.Artifacts.Dir = "artifacts"
	}
	if c.Artifacts.ModelType == "" {
		c.Artifacts.ModelType = ml.ModelTypeRandomForest
	}
	if c.Artifacts.ModelFile == "" {
		c.Artifacts.ModelFile = "model.json"
	}
	if c.Artifacts.ScalerFile == "" {
		c.Artifacts.ScalerFile = "scaler.json"
	}
	if c.Artifacts.EncodersFile == "" {
		c.Artifacts.EncodersFile = "encoders.json"
	}
	if c.Artifacts.Debounce <= 0 {
		c.Artifacts.Debounce = 250 * time.Millisecond
	}
	if c.Artifacts.RequireFeatureOrder == nil {
		require := true
		c.Artifacts.RequireFeatureOrder = &require
	}

	defaults := llm.DefaultGeminiConfig("")
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaults.BaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaults.Model
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = DefaultAPIKeyEnv
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = defaults.Timeout
	}
	if c.LLM.Temperature == nil {
		c.LLM.Temperature = &defaults.Temperature
	}
	if c.LLM.TopP == nil {
		c.LLM.TopP = &defaults.TopP
	}
	if c.LLM.MaxOutputTokens <= 0 {
		c.LLM.MaxOutputTokens = defaults.MaxOutputTokens
	}

	if c.ModelInfo.Name == "" {
		c.ModelInfo.Name = "Random Forest Classifier"
	}
}

// Validate 检查配置取值
func (c *Config) Validate() error {
	if c.Http.Port < 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	switch c.Artifacts.ModelType {
	case ml.ModelTypeRandomForest, ml.ModelTypeDecisionTree:
	default:
		return fmt.Errorf("artifacts.model_type %q is not supported", c.Artifacts.ModelType)
	}
	if t := *c.LLM.Temperature; t < 0 || t > 2 {
		return fmt.Errorf("llm.temperature %v out of range [0, 2]", t)
	}
	if p := *c.LLM.TopP; p < 0 || p > 1 {
		return fmt.Errorf("llm.top_p %v out of range [0, 1]", p)
	}
	if c.ModelInfo.Accuracy < 0 || c.ModelInfo.Accuracy > 100 {
		return fmt.Errorf("model_info.accuracy %v out of range [0, 100]", c.ModelInfo.Accuracy)
	}
	return nil
}

// ArtifactPaths 转换为模型加载路径
func (c *Config) ArtifactPaths() ml.ArtifactPaths {
	return ml.ArtifactPaths{
		Dir:                 c.Artifacts.Dir,
		ModelType:           c.Artifacts.ModelType,
		ModelFile:           c.Artifacts.ModelFile,
		ScalerFile:          c.Artifacts.ScalerFile,
		EncodersFile:        c.Artifacts.EncodersFile,
		RequireFeatureOrder: *c.Artifacts.RequireFeatureOrder,
	}
}

// APIKey 从环境变量读取密钥，密钥不写入配置文件
func (c *Config) APIKey() string {
	return strings.TrimSpace(os.Getenv(c.LLM.APIKeyEnv))
}

// GeminiConfig 组装解释服务配置，未设置密钥时返回 false
func (c *Config) GeminiConfig() (llm.GeminiConfig, bool) {
	key := c.APIKey()
	if key == "" {
		return llm.GeminiConfig{}, false
	}
	return llm.GeminiConfig{
		APIKey:          key,
		BaseURL:         c.LLM.BaseURL,
		Model:           c.LLM.Model,
		Timeout:         c.LLM.Timeout,
		Temperature:     *c.LLM.Temperature,
		TopP:            *c.LLM.TopP,
		MaxOutputTokens: c.LLM.MaxOutputTokens,
	}, true
}

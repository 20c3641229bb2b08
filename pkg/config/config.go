package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/betbot/simbot/internal/strategies/activitysim"
)

// LogConfig 日志配置段
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// ExchangeConfig 交易所连接配置
type ExchangeConfig struct {
	Name    string `yaml:"name"` // ekiden_perpetual / paper
	BaseURL string `yaml:"base_url"`
	WSURL   string `yaml:"ws_url"`
	APIKey  string `yaml:"api_key"`
	Secret  string `yaml:"secret"`
}

// Config 应用配置
type Config struct {
	Log           LogConfig          `yaml:"log"`
	Exchange      ExchangeConfig     `yaml:"exchange"`
	MetricsListen string             `yaml:"metrics_listen"` // expvar/pprof 监听地址（可选）
	ControlListen string             `yaml:"control_listen"` // 控制面 HTTP 监听地址（可选）
	DryRun        bool               `yaml:"dry_run"`        // 纸交易模式：不触达真实交易所
	ActivitySim   activitysim.Config `yaml:"activitysim"`
}

var envRe = regexp.MustCompile(`\$\{(\w+)\}`)

// LoadFromFile 读取 yaml 配置，展开 ${ENV_VAR} 占位符并校验。
func LoadFromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	expanded := envRe.ReplaceAllStringFunc(string(raw), func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Exchange.Name == "" {
		c.Exchange.Name = "ekiden_perpetual"
	}
	if !c.DryRun && c.Exchange.Name != "paper" {
		if c.Exchange.BaseURL == "" {
			return fmt.Errorf("exchange.base_url 不能为空")
		}
		if c.Exchange.APIKey == "" || c.Exchange.Secret == "" {
			return fmt.Errorf("exchange.api_key / exchange.secret 不能为空")
		}
	}
	c.ActivitySim.Defaults()
	if err := c.ActivitySim.Validate(); err != nil {
		return fmt.Errorf("activitysim 配置无效: %w", err)
	}
	return nil
}

// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 当前配置的单例实例
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
)

// AppConfig 包含应用程序的所有配置
type AppConfig struct {
	// 基础配置
	Port      string `yaml:"port" json:"port"`
	DataDir   string `yaml:"data_dir" json:"data_dir"`
	LogDir    string `yaml:"log_dir" json:"log_dir"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
	DebugMode bool   `yaml:"debug_mode" json:"debug_mode"`

	// 认证相关
	AuthSecret string        `yaml:"auth_secret" json:"-"`
	TokenTTL   time.Duration `yaml:"token_ttl" json:"token_ttl"`
	SignupPath string        `yaml:"signup_path" json:"signup_path"`
	DevTokens  bool          `yaml:"dev_tokens" json:"dev_tokens"` // 开放 /api/auth/dev-token，仅限本地开发

	// 草稿相关
	DraftTTL           time.Duration `yaml:"draft_ttl" json:"draft_ttl"`
	DraftSweepSchedule string        `yaml:"draft_sweep_schedule" json:"draft_sweep_schedule"`
	MaxFieldEntries    int           `yaml:"max_field_entries" json:"max_field_entries"`
	SubmissionJournal  bool          `yaml:"submission_journal" json:"submission_journal"`
}

// Default 返回默认配置
func Default() *AppConfig {
	return &AppConfig{
		Port:               "8080",
		DataDir:            "data",
		LogDir:             "logs",
		LogLevel:           "info",
		DebugMode:          true,
		TokenTTL:           24 * time.Hour,
		SignupPath:         "/signup",
		DraftTTL:           30 * time.Minute,
		DraftSweepSchedule: "@every 1m",
		MaxFieldEntries:    50,
	}
}

// Load 依次读取默认值、YAML 配置文件和环境变量，环境变量优先级最高
func Load() (*AppConfig, error) {
	// 尝试加载.env文件（可选）
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.AuthSecret == "" && !cfg.DebugMode {
		log.Println("警告: 未设置 AUTH_SECRET_KEY，将在启动时生成随机密钥，重启后已签发的令牌失效")
	}

	return cfg, nil
}

// loadYAML 读取 YAML 配置覆盖默认值
func loadYAML(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}
	return nil
}

func applyEnv(cfg *AppConfig) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.LogDir = getEnv("LOG_DIR", cfg.LogDir)
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.DebugMode = getEnvBool("DEBUG_MODE", cfg.DebugMode)
	cfg.AuthSecret = getEnv("AUTH_SECRET_KEY", cfg.AuthSecret)
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", cfg.TokenTTL)
	cfg.SignupPath = getEnv("SIGNUP_PATH", cfg.SignupPath)
	cfg.DevTokens = getEnvBool("DEV_TOKENS", cfg.DevTokens)
	cfg.DraftTTL = getEnvDuration("DRAFT_TTL", cfg.DraftTTL)
	cfg.DraftSweepSchedule = getEnv("DRAFT_SWEEP_SCHEDULE", cfg.DraftSweepSchedule)
	cfg.MaxFieldEntries = getEnvInt("MAX_FIELD_ENTRIES", cfg.MaxFieldEntries)
	cfg.SubmissionJournal = getEnvBool("SUBMISSION_JOURNAL", cfg.SubmissionJournal)
}

// Validate 检查配置合法性
func (c *AppConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("端口不能为空")
	}
	if !strings.HasPrefix(c.SignupPath, "/") {
		return fmt.Errorf("注册页路径必须以 / 开头: %q", c.SignupPath)
	}
	if c.DraftTTL <= 0 {
		return fmt.Errorf("草稿过期时间必须为正: %s", c.DraftTTL)
	}
	if c.MaxFieldEntries < 1 {
		return fmt.Errorf("字段条目上限必须至少为 1: %d", c.MaxFieldEntries)
	}
	return nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("警告: 环境变量 %s 不是整数，使用默认值 %d", key, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("警告: 环境变量 %s 不是有效时长，使用默认值 %s", key, defaultValue)
		return defaultValue
	}
	return d
}

// InitConfig 初始化全局配置
func InitConfig() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetCurrentConfig(cfg)
	return nil
}

// SetCurrentConfig 替换全局配置
func SetCurrentConfig(cfg *AppConfig) {
	configMutex.Lock()
	defer configMutex.Unlock()
	configCopy := *cfg
	currentConfig = &configCopy
}

// GetCurrentConfig 返回当前配置的副本
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		// 未初始化时返回默认配置
		return Default()
	}

	configCopy := *currentConfig
	return &configCopy
}

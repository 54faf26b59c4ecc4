package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Media     MediaConfig     `mapstructure:"media"`
	Voice     VoiceConfig     `mapstructure:"voice"`
	Avatar    AvatarConfig    `mapstructure:"avatar"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`      // json 或 text
	Output     string `mapstructure:"output"`      // stdout 或 file
	MaxSize    int    `mapstructure:"max_size"`    // 兆字节
	MaxBackups int    `mapstructure:"max_backups"` // 备份数量
	MaxAge     int    `mapstructure:"max_age"`     // 天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧文件
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`      // JWT 密钥
	ExpireTime int    `mapstructure:"expire_time"` // 过期时间（小时）
	Issuer     string `mapstructure:"issuer"`      // 签发者
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"` // sqlite 数据库文件路径
}

// MediaConfig 媒体生成配置
type MediaConfig struct {
	OutputDir       string `mapstructure:"output_dir"`        // 生成文件输出目录
	PollIntervalSec int    `mapstructure:"poll_interval_sec"` // 轮询远程任务的间隔（秒）
	PollMaxAttempts int    `mapstructure:"poll_max_attempts"` // 轮询的最大次数
	QuotaWaitSec    int    `mapstructure:"quota_wait_sec"`    // 配额淘汰后的等待时间（秒）
	MaxImageEdge    int    `mapstructure:"max_image_edge"`    // 上传肖像图的最长边（像素）
}

// VoiceConfig 语音合成服务配置
type VoiceConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	VoiceID string `mapstructure:"voice_id"`
	ModelID string `mapstructure:"model_id"`
}

// AvatarConfig 数字人影片服务配置
type AvatarConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UploadURL string `mapstructure:"upload_url"` // 资产上传使用独立域名
	APIKey    string `mapstructure:"api_key"`
	Width     int    `mapstructure:"width"`
	Height    int    `mapstructure:"height"`
}

// KnowledgeConfig 知识库检索服务配置
type KnowledgeConfig struct {
	URL         string `mapstructure:"url"`           // 检索服务地址，留空表示不接入
	TopK        int    `mapstructure:"top_k"`         // 返回的片段数量
	CacheTTLMin int    `mapstructure:"cache_ttl_min"` // 检索结果缓存时间（分钟）
}

func Load() *Config {
	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("无法解码配置: %v", err)
	}

	// 验证配置
	if err := validateConfig(&config); err != nil {
		log.Fatalf("配置验证失败: %v", err)
	}

	return &config
}

// PollInterval 轮询间隔
func (m MediaConfig) PollInterval() time.Duration {
	return time.Duration(m.PollIntervalSec) * time.Second
}

// QuotaWait 配额淘汰后的等待时间
func (m MediaConfig) QuotaWait() time.Duration {
	return time.Duration(m.QuotaWaitSec) * time.Second
}

// CacheTTL 检索结果缓存时间
func (k KnowledgeConfig) CacheTTL() time.Duration {
	return time.Duration(k.CacheTTLMin) * time.Minute
}

// setDefaults 设置默认配置
func setDefaults() {
	viper.SetDefault("server.port", "8001")
	viper.SetDefault("server.username", "admin")

	// 日志默认配置
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	// JWT默认配置
	viper.SetDefault("jwt.secret", "your-secret-key-change-in-production")
	viper.SetDefault("jwt.expire_time", 24) // 24小时
	viper.SetDefault("jwt.issuer", "content-forge")

	// 数据库默认配置
	viper.SetDefault("database.path", "data/content-forge.db")

	// 媒体生成默认配置
	viper.SetDefault("media.output_dir", "generated_content")
	viper.SetDefault("media.poll_interval_sec", 10)
	viper.SetDefault("media.poll_max_attempts", 60) // 10 分钟上限
	viper.SetDefault("media.quota_wait_sec", 3)
	viper.SetDefault("media.max_image_edge", 2048)

	// 语音服务默认配置
	viper.SetDefault("voice.base_url", "https://api.elevenlabs.io/v1")
	viper.SetDefault("voice.model_id", "eleven_turbo_v2_5")

	// 数字人服务默认配置
	viper.SetDefault("avatar.base_url", "https://api.heygen.com/v2")
	viper.SetDefault("avatar.upload_url", "https://upload.heygen.com/v1")
	viper.SetDefault("avatar.width", 1280)
	viper.SetDefault("avatar.height", 720)

	// 知识库默认配置
	viper.SetDefault("knowledge.top_k", 5)
	viper.SetDefault("knowledge.cache_ttl_min", 10)
}

// validateConfig 验证配置的有效性
func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("服务器端口未设置")
	}
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT密钥未设置")
	}
	if config.Media.PollIntervalSec <= 0 || config.Media.PollMaxAttempts <= 0 {
		return fmt.Errorf("轮询参数必须为正数")
	}
	return nil
}

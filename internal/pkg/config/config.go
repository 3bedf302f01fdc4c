package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Taxonomy   TaxonomyConfig   `mapstructure:"taxonomy"`
	Recommend  RecommendConfig  `mapstructure:"recommend"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Server     ServerConfig     `mapstructure:"server"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Version  string `mapstructure:"version"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres
	DBPath string `mapstructure:"db_path"`
	DSN    string `mapstructure:"dsn"`
}

// TaxonomyConfig 技能分类表
type TaxonomyConfig struct {
	Path  string `mapstructure:"path"` // 为空使用内置分类表
	Watch bool   `mapstructure:"watch"`
}

// RecommendConfig 推荐打分参数
type RecommendConfig struct {
	CategoryWeight   float64 `mapstructure:"category_weight"`
	PathWeight       float64 `mapstructure:"path_weight"`
	DifficultyWeight float64 `mapstructure:"difficulty_weight"`
	FloorScore       float64 `mapstructure:"floor_score"`
	TopN             int     `mapstructure:"top_n"`
	RegenerateOnView bool    `mapstructure:"regenerate_on_view"`
}

// DispatcherConfig 异步分发
type DispatcherConfig struct {
	Workers    int `mapstructure:"workers"`
	QueueSize  int `mapstructure:"queue_size"`
	JobTimeout int `mapstructure:"job_timeout_sec"`
}

// ServerConfig HTTP 服务
type ServerConfig struct {
	ListenAddr        string `mapstructure:"listen_addr"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec"`
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// 默认查找路径
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 支持环境变量，如 STUDY_STORAGE_DSN
	v.SetEnvPrefix("STUDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("配置文件未找到，使用默认配置")
		} else {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		slog.Info("加载配置文件", "path", v.ConfigFileUsed())
	}

	// 解析配置
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	// 处理环境变量占位符
	cfg.Storage.DSN = expandEnv(cfg.Storage.DSN)

	// 处理相对路径
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	cfg.Storage.DBPath = resolvePath(cfg.Storage.DBPath)
	if cfg.Taxonomy.Path != "" {
		cfg.Taxonomy.Path = resolvePath(cfg.Taxonomy.Path)
	}
	if cfg.App.LogPath != "" {
		cfg.App.LogPath = resolvePath(cfg.App.LogPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default 仅包含默认值的配置（不读文件、不读环境变量）。
// 默认值解析失败属于程序错误，直接 panic。
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		panic(fmt.Sprintf("默认配置无效: %v", err))
	}
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	return &cfg, nil
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "", "sqlite":
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("storage.driver=postgres 时必须配置 storage.dsn")
		}
	default:
		return fmt.Errorf("不支持的存储驱动: %s", c.Storage.Driver)
	}
	r := c.Recommend
	if r.CategoryWeight < 0 || r.PathWeight < 0 || r.DifficultyWeight < 0 {
		return fmt.Errorf("推荐权重不能为负数")
	}
	if r.FloorScore < 0 || r.FloorScore > 1 {
		return fmt.Errorf("recommend.floor_score 必须在 0-1 之间: %v", r.FloorScore)
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "study-agent")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_path", "")

	// Storage
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.db_path", "./data/study.db")
	v.SetDefault("storage.dsn", "")

	// Taxonomy
	v.SetDefault("taxonomy.path", "")
	v.SetDefault("taxonomy.watch", true)

	// Recommend
	v.SetDefault("recommend.category_weight", 0.4)
	v.SetDefault("recommend.path_weight", 0.4)
	v.SetDefault("recommend.difficulty_weight", 0.2)
	v.SetDefault("recommend.floor_score", 0.1)
	v.SetDefault("recommend.top_n", 10)
	v.SetDefault("recommend.regenerate_on_view", true)

	// Dispatcher
	v.SetDefault("dispatcher.workers", 4)
	v.SetDefault("dispatcher.queue_size", 256)
	v.SetDefault("dispatcher.job_timeout_sec", 10)

	// Server
	v.SetDefault("server.listen_addr", "127.0.0.1:8690")
	v.SetDefault("server.request_timeout_sec", 15)
}

// expandEnv 展开环境变量占位符 ${VAR}
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		envVar := s[2 : len(s)-1]
		return os.Getenv(envVar)
	}
	return s
}

// resolvePath 解析相对路径为绝对路径（相对可执行文件目录）
func resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	// 获取可执行文件目录
	exe, err := os.Executable()
	if err != nil {
		return path
	}

	exeDir := filepath.Dir(exe)
	return filepath.Join(exeDir, path)
}

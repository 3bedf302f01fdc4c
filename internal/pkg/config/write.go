package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

func DefaultConfigPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("获取可执行文件路径失败: %w", err)
	}
	exeDir := filepath.Dir(exe)
	return filepath.Join(exeDir, "config", "config.yaml"), nil
}

// WriteFile 以 YAML 写出配置（用于 study init 生成配置模板）
func WriteFile(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("cfg 不能为空")
	}
	if path == "" {
		return fmt.Errorf("path 不能为空")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	payload := map[string]any{
		"app": map[string]any{
			"name":      cfg.App.Name,
			"version":   cfg.App.Version,
			"log_level": cfg.App.LogLevel,
			"log_path":  cfg.App.LogPath,
		},
		"storage": map[string]any{
			"driver":  cfg.Storage.Driver,
			"db_path": cfg.Storage.DBPath,
			"dsn":     cfg.Storage.DSN,
		},
		"taxonomy": map[string]any{
			"path":  cfg.Taxonomy.Path,
			"watch": cfg.Taxonomy.Watch,
		},
		"recommend": map[string]any{
			"category_weight":    cfg.Recommend.CategoryWeight,
			"path_weight":        cfg.Recommend.PathWeight,
			"difficulty_weight":  cfg.Recommend.DifficultyWeight,
			"floor_score":        cfg.Recommend.FloorScore,
			"top_n":              cfg.Recommend.TopN,
			"regenerate_on_view": cfg.Recommend.RegenerateOnView,
		},
		"dispatcher": map[string]any{
			"workers":         cfg.Dispatcher.Workers,
			"queue_size":      cfg.Dispatcher.QueueSize,
			"job_timeout_sec": cfg.Dispatcher.JobTimeout,
		},
		"server": map[string]any{
			"listen_addr":         cfg.Server.ListenAddr,
			"request_timeout_sec": cfg.Server.RequestTimeoutSec,
		},
	}

	b, err := yaml.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}

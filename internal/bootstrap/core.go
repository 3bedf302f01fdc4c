package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/yuqie6/StudyMirror/internal/eventbus"
	"github.com/yuqie6/StudyMirror/internal/pkg/config"
	"github.com/yuqie6/StudyMirror/internal/repository"
	"github.com/yuqie6/StudyMirror/internal/service"
	"github.com/yuqie6/StudyMirror/internal/taxonomy"
)

// Core 持有跨二进制共享的核心依赖
type Core struct {
	Cfg       *config.Config
	DB        *repository.Database
	LogCloser io.Closer
	Hub       *eventbus.Hub
	Taxonomy  *taxonomy.Provider

	Repos struct {
		Activity       *repository.ActivityEventRepository
		Progress       *repository.SkillProgressRepository
		Badge          *repository.BadgeRepository
		Catalog        *repository.CatalogRepository
		Recommendation *repository.RecommendationRepository
	}

	Services struct {
		Progress  *service.ProgressService
		Badges    *service.BadgeService
		Recommend *service.RecommendationService
		Pipeline  *service.PipelineService
	}
}

// NewCore 构建核心依赖（不启动后台任务）
func NewCore(cfgPath string) (*Core, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logCloser, _ := config.SetupLogger(config.LoggerOptions{
		Level:     cfg.App.LogLevel,
		Path:      cfg.App.LogPath,
		Component: filepath.Base(os.Args[0]),
	})

	tax, err := taxonomy.Load(cfg.Taxonomy.Path)
	if err != nil {
		if logCloser != nil {
			_ = logCloser.Close()
		}
		return nil, err
	}

	db, err := repository.NewDatabase(repository.Options{
		Driver: cfg.Storage.Driver,
		DBPath: cfg.Storage.DBPath,
		DSN:    cfg.Storage.DSN,
	})
	if err != nil {
		if logCloser != nil {
			_ = logCloser.Close()
		}
		return nil, err
	}

	c := Assemble(cfg, db, tax)
	c.LogCloser = logCloser

	if !db.SafeMode {
		if _, err := c.SyncBadgeDefinitions(context.Background()); err != nil {
			slog.Warn("同步徽章定义失败", "error", err)
		}
	}
	return c, nil
}

// Assemble 在已有配置与数据库上组装仓储和服务
func Assemble(cfg *config.Config, db *repository.Database, tax *taxonomy.Taxonomy) *Core {
	if cfg == nil {
		cfg = config.Default()
	}
	c := &Core{
		Cfg:      cfg,
		DB:       db,
		Hub:      eventbus.NewHub(),
		Taxonomy: taxonomy.NewProvider(tax),
	}

	// Repos
	c.Repos.Activity = repository.NewActivityEventRepository(db.DB)
	c.Repos.Progress = repository.NewSkillProgressRepository(db.DB)
	c.Repos.Badge = repository.NewBadgeRepository(db.DB)
	c.Repos.Catalog = repository.NewCatalogRepository(db.DB)
	c.Repos.Recommendation = repository.NewRecommendationRepository(db.DB)

	// Services
	c.Services.Progress = service.NewProgressService(c.Repos.Progress, c.Taxonomy)
	c.Services.Badges = service.NewBadgeService(c.Repos.Badge, c.Repos.Progress, c.Taxonomy, c.Hub)
	c.Services.Recommend = service.NewRecommendationService(
		c.Repos.Activity,
		c.Repos.Catalog,
		c.Repos.Recommendation,
		c.Taxonomy,
		c.Hub,
		ScoringPolicy(cfg),
	)
	c.Services.Pipeline = service.NewPipelineService(
		c.Repos.Activity,
		c.Services.Progress,
		c.Services.Badges,
		c.Services.Recommend,
		c.Taxonomy,
		c.Hub,
		service.PipelineOptions{RegenerateOnView: cfg.Recommend.RegenerateOnView},
	)
	return c
}

// ScoringPolicy 配置 -> 推荐打分参数
func ScoringPolicy(cfg *config.Config) service.ScoringPolicy {
	return service.ScoringPolicy{
		CategoryWeight:   cfg.Recommend.CategoryWeight,
		PathWeight:       cfg.Recommend.PathWeight,
		DifficultyWeight: cfg.Recommend.DifficultyWeight,
		FloorScore:       cfg.Recommend.FloorScore,
		TopN:             cfg.Recommend.TopN,
	}
}

// SyncBadgeDefinitions 为分类表中声明的技能写入徽章定义
func (c *Core) SyncBadgeDefinitions(ctx context.Context) (int64, error) {
	n, err := c.Services.Badges.SyncDefinitions(ctx, c.Taxonomy.Current().KnownSkills())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("徽章定义已同步", "inserted", n)
	}
	return n, nil
}

// Close 关闭核心依赖资源
func (c *Core) Close() error {
	if c == nil {
		return nil
	}
	var dbErr error
	if c.DB != nil {
		dbErr = c.DB.Close()
	}
	if c.LogCloser != nil {
		_ = c.LogCloser.Close()
	}
	return dbErr
}

// RequireWritable 安全模式下拒绝写操作
func (c *Core) RequireWritable() error {
	if c.DB != nil && c.DB.SafeMode {
		return fmt.Errorf("数据库处于安全模式: %s", c.DB.MigrationError)
	}
	return nil
}

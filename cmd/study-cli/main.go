package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/yuqie6/StudyMirror/internal/bootstrap"
	"github.com/yuqie6/StudyMirror/internal/dto"
	"github.com/yuqie6/StudyMirror/internal/httpapi"
	"github.com/yuqie6/StudyMirror/internal/pkg/config"
	"github.com/yuqie6/StudyMirror/internal/schema"
	"github.com/yuqie6/StudyMirror/internal/service"
)

var (
	cfgFile string
	core    *bootstrap.Core
)

const cmdTimeout = 30 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:   "study",
		Short: "StudyMirror - 学习行为量化与技能成长追踪",
		Long:  `StudyMirror 记录学习活动，更新技能掌握度、颁发徽章，并根据浏览偏好推荐学习内容。`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if cmd.Name() == "init" {
				return
			}
			var err error
			core, err = bootstrap.NewCore(cfgFile)
			if err != nil {
				slog.Error("初始化失败", "error", err)
				os.Exit(1)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if core != nil {
				_ = core.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(skillsCmd())
	rootCmd.AddCommand(badgesCmd())
	rootCmd.AddCommand(recommendCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(catalogCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func exitOnErr(msg string, err error) {
	if err != nil {
		fmt.Printf("❌ %s: %v\n", msg, err)
		os.Exit(1)
	}
}

func requireUser(user string) {
	if strings.TrimSpace(user) == "" {
		fmt.Println("❌ 请使用 --user 指定用户")
		os.Exit(1)
	}
}

// initCmd 写入默认配置文件
func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "生成默认配置文件",
		Run: func(cmd *cobra.Command, args []string) {
			path := cfgFile
			if path == "" {
				p, err := config.DefaultConfigPath()
				exitOnErr("定位配置路径失败", err)
				path = p
			}
			if _, err := os.Stat(path); err == nil && !force {
				fmt.Printf("⚠️  配置已存在: %s（使用 --force 覆盖）\n", path)
				return
			}
			exitOnErr("写入配置失败", config.WriteFile(path, config.Default()))
			fmt.Printf("✅ 已生成配置: %s\n", path)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "覆盖已有配置")
	return cmd
}

// logCmd 同步记录一条学习活动
func logCmd() *cobra.Command {
	var user, activityType, contentID, language, topic string
	var increment int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "记录学习活动",
		Run: func(cmd *cobra.Command, args []string) {
			requireUser(user)
			exitOnErr("数据库不可写", core.RequireWritable())

			in := service.ActivityInput{
				UserID:       user,
				ActivityType: activityType,
				ContentID:    contentID,
				Context:      schema.ActivityContext{Language: language, Topic: topic},
			}
			if cmd.Flags().Changed("increment") {
				in.Context.IncrementOverride = &increment
			}

			ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
			defer cancel()
			out, err := core.Services.Pipeline.LogActivity(ctx, in)
			exitOnErr("记录活动失败", err)

			fmt.Printf("✅ 已记录 %s (%s)\n", out.Event.ActivityType, out.Event.ID)
			if !out.Known {
				fmt.Println("   未知活动类型，未更新技能")
			}
			printProgress(out.Progress)
			for _, b := range out.NewBadges {
				fmt.Printf("🏅 获得徽章: %s %s (%d)\n", b.SkillName, b.Label, b.Threshold)
			}
			if out.RecommendationsRegenerated {
				fmt.Printf("💡 推荐已更新: %d 条\n", out.RecommendationCount)
			}
			if err := out.Err(); err != nil {
				fmt.Printf("⚠️  部分处理失败: %v\n", err)
			}
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "用户 ID")
	cmd.Flags().StringVarP(&activityType, "type", "t", "", "活动类型，如 exercise_completed")
	cmd.Flags().StringVar(&contentID, "content", "", "内容 ID")
	cmd.Flags().StringVar(&language, "language", "", "编程语言")
	cmd.Flags().StringVar(&topic, "topic", "", "主题")
	cmd.Flags().IntVar(&increment, "increment", 0, "覆盖默认增量")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func printProgress(rows []schema.SkillProgress) {
	for _, sp := range rows {
		bar := strings.Repeat("█", sp.Progress/10) + strings.Repeat("░", 10-sp.Progress/10)
		fmt.Printf("  %-20s %s %3d\n", sp.SkillName, bar, sp.Progress)
	}
}

func historyCmd() *cobra.Command {
	var user string
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "查看最近的学习活动",
		Run: func(cmd *cobra.Command, args []string) {
			requireUser(user)
			events, err := core.Services.Pipeline.RecentActivities(context.Background(), user, limit)
			exitOnErr("查询学习活动失败", err)
			if len(events) == 0 {
				fmt.Println("📚 还没有学习活动")
				return
			}
			for _, e := range events {
				fmt.Printf("  %s  %-20s %s\n", e.OccurredAt.Format("2006-01-02 15:04"), e.ActivityType, e.ContentID)
			}
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "用户 ID")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "最多显示条数（0 为全部）")
	return cmd
}

func skillsCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "查看技能掌握度",
		Run: func(cmd *cobra.Command, args []string) {
			requireUser(user)
			rows, err := core.Services.Progress.ListProgress(context.Background(), user)
			exitOnErr("查询技能失败", err)
			if len(rows) == 0 {
				fmt.Println("📚 还没有技能记录")
				return
			}
			fmt.Printf("🎯 %s 的技能\n", user)
			printProgress(rows)
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "用户 ID")
	return cmd
}

func badgesCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "badges",
		Short: "查看已获得的徽章",
		Run: func(cmd *cobra.Command, args []string) {
			requireUser(user)
			badges, err := core.Services.Badges.ListAwarded(context.Background(), user)
			exitOnErr("查询徽章失败", err)
			printBadges(badges)
		},
	}
	cmd.PersistentFlags().StringVarP(&user, "user", "u", "", "用户 ID")

	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "按当前进度补发遗漏的徽章",
		Run: func(cmd *cobra.Command, args []string) {
			requireUser(user)
			exitOnErr("数据库不可写", core.RequireWritable())
			earned, err := core.Services.Badges.Sweep(context.Background(), user)
			exitOnErr("补发徽章失败", err)
			fmt.Printf("✅ 补发 %d 枚徽章\n", len(earned))
			printBadges(earned)
		},
	}
	cmd.AddCommand(sweep)
	return cmd
}

func printBadges(badges []schema.AwardedBadge) {
	if len(badges) == 0 {
		fmt.Println("🏅 暂无徽章")
		return
	}
	for _, b := range badges {
		fmt.Printf("  🏅 %-20s %-8s %3d  %s\n", b.SkillName, b.Label, b.Threshold, b.EarnedAt.Format("2006-01-02 15:04"))
	}
}

func recommendCmd() *cobra.Command {
	var user string
	var limit int
	var regenerate bool

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "查看推荐内容",
		Run: func(cmd *cobra.Command, args []string) {
			requireUser(user)
			ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
			defer cancel()

			var recs []schema.Recommendation
			var err error
			if regenerate {
				exitOnErr("数据库不可写", core.RequireWritable())
				recs, err = core.Services.Pipeline.RegenerateRecommendations(ctx, user)
				if err == nil && limit > 0 && len(recs) > limit {
					recs = recs[:limit]
				}
			} else {
				recs, err = core.Services.Recommend.GetRecommendations(ctx, user, limit)
			}
			exitOnErr("查询推荐失败", err)

			if len(recs) == 0 {
				fmt.Println("💡 暂无推荐（可使用 --regenerate 重新生成）")
				return
			}
			fmt.Printf("💡 %s 的推荐\n", user)
			for _, r := range recs {
				mark := " "
				if r.IsViewed {
					mark = "✓"
				}
				fmt.Printf("  %2d. %s %-24s %-10s %.3f\n", r.Rank, mark, r.ItemID, r.ItemType, r.RelevanceScore)
			}
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "用户 ID")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "最多显示条数（0 为全部）")
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "先重新生成再显示")
	return cmd
}

func profileCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "查看偏好画像",
		Run: func(cmd *cobra.Command, args []string) {
			requireUser(user)
			p, err := core.Services.Recommend.Profile(context.Background(), user)
			exitOnErr("计算画像失败", err)
			if p.Empty() {
				fmt.Println("📚 暂无浏览记录（冷启动）")
				return
			}
			out, err := yaml.Marshal(dto.PreferenceProfileDTO{Category: p.Category, Path: p.Path, Difficulty: p.Difficulty})
			exitOnErr("序列化失败", err)
			fmt.Print(string(out))
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "用户 ID")
	return cmd
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "管理内容目录",
	}

	importCmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "从 YAML 导入内容目录",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			exitOnErr("数据库不可写", core.RequireWritable())
			req, err := readCatalogFile(args[0])
			exitOnErr("读取目录失败", err)

			items := httpapi.CatalogItemsFromDTO(req.Items)
			exitOnErr("导入目录失败", core.Repos.Catalog.UpsertItems(context.Background(), items))
			fmt.Printf("✅ 已导入 %d 个条目\n", len(items))
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "列出内容目录",
		Run: func(cmd *cobra.Command, args []string) {
			items, err := core.Repos.Catalog.ListItems(context.Background())
			exitOnErr("查询目录失败", err)
			for _, it := range items {
				fmt.Printf("  %-16s %-12s %-12s %-12s %s\n", it.ID, it.Category, it.Path, it.Difficulty, it.Title)
			}
			fmt.Printf("共 %d 个条目\n", len(items))
		},
	}

	cmd.AddCommand(importCmd, listCmd)
	return cmd
}

// readCatalogFile 读取并校验 YAML 目录文件
func readCatalogFile(path string) (*dto.ImportCatalogRequestDTO, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var req dto.ImportCatalogRequestDTO
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("解析 YAML 失败: %w", err)
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&req); err != nil {
		return nil, fmt.Errorf("目录校验失败: %w", err)
	}
	return &req, nil
}

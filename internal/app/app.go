// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Corphon/LocalVoice/internal/api"
	"github.com/Corphon/LocalVoice/internal/auth"
	"github.com/Corphon/LocalVoice/internal/config"
	"github.com/Corphon/LocalVoice/internal/di"
	"github.com/Corphon/LocalVoice/internal/services"
	"github.com/Corphon/LocalVoice/internal/storage"
	"github.com/Corphon/LocalVoice/internal/utils"
)

const (
	shutdownTimeout   = 30 * time.Second
	statsSaveInterval = 30 * time.Second
)

// Server 抽象 http.Server，便于测试替换
type Server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// App 应用实例
type App struct {
	config   *config.AppConfig
	router   http.Handler
	server   Server
	stopChan chan os.Signal
}

var (
	instance   *App
	instanceMu sync.Mutex
)

// GetApp 获取应用单例
func GetApp() *App {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance == nil {
		instance = &App{stopChan: make(chan os.Signal, 1)}
	}
	return instance
}

// Initialize 加载配置、初始化日志和服务并构建路由
func Initialize() error {
	if err := config.InitConfig(); err != nil {
		return fmt.Errorf("初始化配置失败: %w", err)
	}
	cfg := config.GetCurrentConfig()

	if err := createDirectories(cfg); err != nil {
		return err
	}
	if err := initLogger(cfg.LogDir, cfg.LogLevel); err != nil {
		return fmt.Errorf("初始化日志系统失败: %w", err)
	}
	if err := InitServices(); err != nil {
		return fmt.Errorf("初始化服务失败: %w", err)
	}

	router, err := api.SetupRouter(di.GetContainer(), cfg)
	if err != nil {
		return fmt.Errorf("设置路由失败: %w", err)
	}

	app := GetApp()
	app.config = cfg
	app.router = router
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	utils.GetLogger().Info("应用初始化完成", map[string]interface{}{
		"port":     cfg.Port,
		"debug":    cfg.DebugMode,
		"services": di.GetContainer().GetNames(),
	})
	return nil
}

// createDirectories 创建应用所需的目录结构
func createDirectories(cfg *config.AppConfig) error {
	for _, dir := range []string{cfg.DataDir, cfg.LogDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建目录失败 %s: %w", dir, err)
		}
	}
	return nil
}

// initLogger 在 logDir 下按日期创建日志文件
func initLogger(logDir, level string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}
	logFile := filepath.Join(logDir, fmt.Sprintf("localvoice_%s.log", time.Now().Format("2006-01-02")))
	if err := utils.InitLogger(logFile); err != nil {
		return err
	}
	utils.GetLogger().SetLogLevel(utils.ParseLogLevel(level))
	return nil
}

// InitServices 按依赖顺序创建服务并注册到全局容器
func InitServices() error {
	cfg := config.GetCurrentConfig()
	container := di.GetContainer()

	// 1. 基础设施
	logger := utils.GetLogger()
	metrics := utils.GetMetricsCollector()
	container.Register(di.ServiceLogger, logger)
	container.Register(di.ServiceMetrics, metrics)

	store, err := storage.NewFileStorage(cfg.DataDir)
	if err != nil {
		return err
	}
	container.Register(di.ServiceStorage, store)

	// 2. 发布器
	var publisher services.Publisher = services.NewTracePublisher(logger)
	if cfg.SubmissionJournal {
		publisher = services.NewJournalPublisher(store, "", logger)
	}
	container.Register(di.ServicePublisher, publisher)

	stats := services.NewStatsService(store, statsSaveInterval, logger)
	container.Register(di.ServiceStats, stats)

	// 3. 认证
	secret := []byte(cfg.AuthSecret)
	if len(secret) == 0 {
		if secret, err = auth.GenerateSecureKey(32); err != nil {
			return fmt.Errorf("生成认证密钥失败: %w", err)
		}
		logger.Warn("AUTH_SECRET_KEY 未设置，使用临时密钥", nil)
	}
	container.Register(di.ServiceAuth, auth.NewTokenAuthenticator(&auth.TokenConfig{
		Secret:     auth.NormalizeSecret(secret),
		Expiration: cfg.TokenTTL,
	}))

	// 4. 业务服务
	drafts, err := services.NewDraftService(services.DraftServiceOptions{
		TTL:             cfg.DraftTTL,
		MaxFieldEntries: cfg.MaxFieldEntries,
		SweepSchedule:   cfg.DraftSweepSchedule,
		Publisher:       publisher,
		Recorder:        stats,
		Logger:          logger,
		Metrics:         metrics,
	})
	if err != nil {
		return fmt.Errorf("创建草稿服务失败: %w", err)
	}
	container.Register(di.ServiceDrafts, drafts)
	container.Register(di.ServicePages, services.NewPageService())

	logger.Info("服务初始化完成", map[string]interface{}{
		"publisher": publisher.Name(),
		"count":     len(container.GetNames()),
	})
	return nil
}

// Run 启动服务器，收到停止信号或服务器出错后优雅关闭
func Run() error {
	app := GetApp()
	if app.server == nil {
		return errors.New("应用尚未初始化")
	}
	signal.Notify(app.stopChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(app.stopChan)

	logger := utils.GetLogger()
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		logger.Info("服务器启动", map[string]interface{}{"port": app.portString()})
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("启动服务器失败: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		select {
		case sig := <-app.stopChan:
			logger.Info("收到停止信号，正在关闭服务器", map[string]interface{}{"signal": sig.String()})
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("服务器强制关闭: %w", err)
		}
		return nil
	})

	err := g.Wait()
	app.cleanup()
	return err
}

func (a *App) portString() string {
	if a.config == nil {
		return ""
	}
	return a.config.Port
}

// cleanup 关闭容器中的服务并刷新日志
func (a *App) cleanup() {
	logger := utils.GetLogger()
	if err := di.GetContainer().Close(); err != nil {
		logger.Warn("关闭服务时出错", map[string]interface{}{"error": err.Error()})
	}
	logger.Info("应用已停止", nil)
	_ = logger.Sync()
}

// GetConfig 获取应用配置
func (a *App) GetConfig() *config.AppConfig {
	return a.config
}

// GetDIContainer 获取依赖注入容器
func GetDIContainer() *di.Container {
	return di.GetContainer()
}

// IsDebugMode 是否处于调试模式
func IsDebugMode() bool {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	return instance != nil && instance.config != nil && instance.config.DebugMode
}

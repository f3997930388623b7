// internal/api/router.go
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/LocalVoice/internal/auth"
	"github.com/Corphon/LocalVoice/internal/config"
	"github.com/Corphon/LocalVoice/internal/di"
	"github.com/Corphon/LocalVoice/internal/services"
	"github.com/Corphon/LocalVoice/internal/utils"
)

const (
	apiRateLimit  = 120
	apiRateWindow = time.Minute
)

// SetupRouter 配置HTTP路由，所需服务全部从容器获取
func SetupRouter(container *di.Container, cfg *config.AppConfig) (*gin.Engine, error) {
	drafts, err := di.Resolve[*services.DraftService](container, di.ServiceDrafts)
	if err != nil {
		return nil, err
	}
	pages, err := di.Resolve[*services.PageService](container, di.ServicePages)
	if err != nil {
		return nil, err
	}
	authenticator, err := di.Resolve[auth.Authenticator](container, di.ServiceAuth)
	if err != nil {
		return nil, err
	}
	logger, err := di.Resolve[*utils.Logger](container, di.ServiceLogger)
	if err != nil {
		return nil, err
	}
	metrics, err := di.Resolve[*utils.MetricsCollector](container, di.ServiceMetrics)
	if err != nil {
		return nil, err
	}

	// 统计服务可选
	stats, _ := container.Get(di.ServiceStats).(*services.StatsService)

	deps := HandlerDeps{
		Drafts:     drafts,
		Pages:      pages,
		Stats:      stats,
		Auth:       authenticator,
		SignupPath: cfg.SignupPath,
		TokenTTL:   cfg.TokenTTL,
		Logger:     logger,
		Metrics:    metrics,
	}
	// 开发令牌需显式开启，DEBUG_MODE 不足以暴露签发接口
	if issuer, ok := authenticator.(TokenIssuer); ok && cfg.DevTokens {
		deps.Issuer = issuer
	}
	handler := NewHandler(deps)
	container.Register(di.ServiceSockets, handler.Sockets)

	return NewRouter(handler), nil
}

// NewRouter 注册全部路由
func NewRouter(handler *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogMiddleware(handler.Logger, handler.Metrics))
	r.Use(corsMiddleware())
	r.Use(AuthMiddleware(handler.Auth, handler.Logger))

	r.SetHTMLTemplate(loadTemplates())

	// ===============================
	// 页面路由
	// ===============================
	r.GET("/", handler.IndexPage)
	r.POST("/", handler.SubmitForm)
	r.GET("/join", handler.Join)

	// WebSocket 支持
	r.GET("/ws/draft", RequireViewer(), handler.DraftWebSocket)

	// ===============================
	// API路由组
	// ===============================
	limiter := NewRateLimiter(apiRateLimit, apiRateWindow)
	api := r.Group("/api", limiter.Middleware())
	{
		api.GET("/health", handler.Health)
		api.GET("/session", handler.Session)
		api.GET("/stats", handler.SubmissionStats)

		if handler.Issuer != nil {
			api.POST("/auth/dev-token", handler.DevToken)
		}

		draftGroup := api.Group("/draft", RequireViewer())
		{
			draftGroup.GET("", handler.GetDraft)
			draftGroup.DELETE("", handler.ResetDraft)
			draftGroup.PUT("/fields/:group/:index", handler.UpdateField)
			draftGroup.POST("/fields/:group", handler.AppendField)
			draftGroup.POST("/submit", handler.SubmitDraft)
		}
	}

	return r
}

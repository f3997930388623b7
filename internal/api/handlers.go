// internal/api/handlers.go
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/LocalVoice/internal/auth"
	"github.com/Corphon/LocalVoice/internal/services"
	"github.com/Corphon/LocalVoice/internal/utils"
)

// TokenIssuer mints bearer tokens; only wired when DEV_TOKENS is set.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// Navigator is the routing capability used for navigateToSignUp.
type Navigator interface {
	Navigate(c *gin.Context, path string)
}

// RedirectNavigator answers with a 303 so a POSTed form lands on a GET.
type RedirectNavigator struct{}

// Navigate redirects to path.
func (RedirectNavigator) Navigate(c *gin.Context, path string) {
	c.Redirect(http.StatusSeeOther, path)
}

// Handler 处理页面与API请求
type Handler struct {
	Drafts     *services.DraftService  // 草稿服务
	Pages      *services.PageService   // 页面文案
	Stats      *services.StatsService  // 提交统计，可选
	Auth       auth.Authenticator      // 当前用户
	Issuer     TokenIssuer             // 开启 DEV_TOKENS 时签发令牌
	Navigator  Navigator               // 页面跳转
	SignupPath string                  // 注册页路径
	TokenTTL   time.Duration           // 令牌有效期，用于 cookie
	Logger     *utils.Logger           // 日志
	Metrics    *utils.MetricsCollector // 指标
	Response   *ResponseHelper         // 响应助手
	Sockets    *WebSocketManager       // 草稿同步连接
	StartedAt  time.Time
}

// HandlerDeps 构造 Handler 所需依赖
type HandlerDeps struct {
	Drafts     *services.DraftService
	Pages      *services.PageService
	Stats      *services.StatsService
	Auth       auth.Authenticator
	Issuer     TokenIssuer
	Navigator  Navigator
	SignupPath string
	TokenTTL   time.Duration
	Logger     *utils.Logger
	Metrics    *utils.MetricsCollector
}

// NewHandler 创建处理器，未提供的可选依赖使用默认值
func NewHandler(deps HandlerDeps) *Handler {
	if deps.Pages == nil {
		deps.Pages = services.NewPageService()
	}
	if deps.Navigator == nil {
		deps.Navigator = RedirectNavigator{}
	}
	if deps.SignupPath == "" {
		deps.SignupPath = "/signup"
	}
	if deps.Logger == nil {
		deps.Logger = utils.GetLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = utils.GetMetricsCollector()
	}
	return &Handler{
		Drafts:     deps.Drafts,
		Pages:      deps.Pages,
		Stats:      deps.Stats,
		Auth:       deps.Auth,
		Issuer:     deps.Issuer,
		Navigator:  deps.Navigator,
		SignupPath: deps.SignupPath,
		TokenTTL:   deps.TokenTTL,
		Logger:     deps.Logger,
		Metrics:    deps.Metrics,
		Response:   NewResponseHelper(),
		Sockets:    NewWebSocketManager(deps.Logger, deps.Metrics),
		StartedAt:  time.Now(),
	}
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.StartedAt).Seconds()),
		"active_drafts":  h.Drafts.Count(),
		"publisher":      h.Drafts.Publisher(),
		"ws_connections": h.Sockets.Count(),
		"websocket":      h.Sockets.GetStatus(),
		"metrics":        h.Metrics.GetMetrics(),
	})
}

// SubmissionStats 提交统计
func (h *Handler) SubmissionStats(c *gin.Context) {
	if h.Stats == nil {
		h.Response.NotFound(c, "submission stats are disabled")
		return
	}
	h.Response.Success(c, h.Stats.GetStats())
}

type devTokenRequest struct {
	UserID string `json:"user_id" binding:"required,max=64"`
}

// DevToken 开发环境签发令牌并写入 cookie，需开启 DEV_TOKENS
func (h *Handler) DevToken(c *gin.Context) {
	if h.Issuer == nil {
		h.Response.NotFound(c, "token issuing is disabled")
		return
	}

	var req devTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, ErrorBadRequest, "user_id is required", err.Error())
		return
	}

	token, err := h.Issuer.Issue(req.UserID)
	if err != nil {
		h.Response.BadRequest(c, ErrorBadRequest, "cannot issue credentials for this user")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(TokenCookie, token, int(h.TokenTTL.Seconds()), "/", "", false, true)
	h.Response.Created(c, gin.H{"token": token, "user_id": req.UserID})
}

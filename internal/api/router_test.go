package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Corphon/LocalVoice/internal/auth"
	"github.com/Corphon/LocalVoice/internal/config"
	"github.com/Corphon/LocalVoice/internal/di"
	"github.com/Corphon/LocalVoice/internal/services"
	"github.com/Corphon/LocalVoice/internal/utils"
)

// newContainer 按 app.InitServices 的方式准备 SetupRouter 所需的服务
func newContainer(t *testing.T) *di.Container {
	t.Helper()

	core, _ := observer.New(zapcore.DebugLevel)
	logger := utils.NewLogger(core)
	metrics := utils.NewMetricsCollector()

	drafts, err := services.NewDraftService(services.DraftServiceOptions{
		TTL:       time.Hour,
		Publisher: services.NewTracePublisher(logger),
		Logger:    logger,
		Metrics:   metrics,
	})
	require.NoError(t, err)

	container := di.NewContainer()
	container.Register(di.ServiceLogger, logger)
	container.Register(di.ServiceMetrics, metrics)
	container.Register(di.ServiceAuth, auth.NewTokenAuthenticator(&auth.TokenConfig{
		Secret:     auth.NormalizeSecret([]byte("router-secret")),
		Expiration: time.Hour,
	}))
	container.Register(di.ServiceDrafts, drafts)
	container.Register(di.ServicePages, services.NewPageService())
	t.Cleanup(func() { container.Close() })
	return container
}

func postDevToken(t *testing.T, h http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/dev-token", strings.NewReader(`{"user_id":"victim"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestSetupRouterDevTokens(t *testing.T) {
	t.Run("default config does not mount dev-token", func(t *testing.T) {
		cfg := config.Default()
		require.True(t, cfg.DebugMode)

		router, err := SetupRouter(newContainer(t), cfg)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, postDevToken(t, router).Code)
	})

	t.Run("explicit opt-in mounts dev-token", func(t *testing.T) {
		cfg := config.Default()
		cfg.DevTokens = true

		router, err := SetupRouter(newContainer(t), cfg)
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, postDevToken(t, router).Code)
	})
}

func TestSetupRouterMissingService(t *testing.T) {
	_, err := SetupRouter(di.NewContainer(), config.Default())
	assert.Error(t, err)
}

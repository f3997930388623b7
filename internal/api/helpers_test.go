package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Corphon/LocalVoice/internal/auth"
	"github.com/Corphon/LocalVoice/internal/services"
	"github.com/Corphon/LocalVoice/internal/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	router  *gin.Engine
	handler *Handler
	drafts  *services.DraftService
	auth    *auth.TokenAuthenticator
	logs    *observer.ObservedLogs
	metrics *utils.MetricsCollector
}

func newTestEnv(t *testing.T, devTokens bool) *testEnv {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := utils.NewLogger(core)
	metrics := utils.NewMetricsCollector()

	drafts, err := services.NewDraftService(services.DraftServiceOptions{
		TTL:             time.Hour,
		MaxFieldEntries: 5,
		Publisher:       services.NewTracePublisher(logger),
		Logger:          logger,
		Metrics:         metrics,
	})
	require.NoError(t, err)

	authenticator := auth.NewTokenAuthenticator(&auth.TokenConfig{
		Secret:     auth.NormalizeSecret([]byte("test-secret")),
		Expiration: time.Hour,
	})

	deps := HandlerDeps{
		Drafts:     drafts,
		Auth:       authenticator,
		SignupPath: "/signup",
		TokenTTL:   time.Hour,
		Logger:     logger,
		Metrics:    metrics,
	}
	if devTokens {
		deps.Issuer = authenticator
	}
	handler := NewHandler(deps)

	t.Cleanup(func() {
		handler.Sockets.Shutdown()
		drafts.Close()
	})

	return &testEnv{
		router:  NewRouter(handler),
		handler: handler,
		drafts:  drafts,
		auth:    authenticator,
		logs:    logs,
		metrics: metrics,
	}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := e.auth.Issue(userID)
	require.NoError(t, err)
	return token
}

// do 发送请求，token 为空时匿名访问
func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Message string          `json:"message"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func cookieFor(token string) *http.Cookie {
	return &http.Cookie{Name: TokenCookie, Value: token}
}

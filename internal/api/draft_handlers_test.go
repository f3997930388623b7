package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/LocalVoice/internal/draft"
	"github.com/Corphon/LocalVoice/internal/models"
	"github.com/Corphon/LocalVoice/internal/services"
	"github.com/Corphon/LocalVoice/internal/storage"
)

func TestDraftRoutesRequireViewer(t *testing.T) {
	env := newTestEnv(t, false)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/draft"},
		{http.MethodPut, "/api/draft/fields/categories/0"},
		{http.MethodPost, "/api/draft/fields/categories"},
		{http.MethodPost, "/api/draft/submit"},
		{http.MethodDelete, "/api/draft"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := env.do(t, tc.method, tc.path, "", "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			resp := decode(t, w, nil)
			require.NotNil(t, resp.Error)
			assert.Equal(t, ErrorUnauthorized, resp.Error.Code)
		})
	}

	// 无效令牌同样视为匿名
	w := env.do(t, http.MethodGet, "/api/draft", "garbage.token", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSession(t *testing.T) {
	env := newTestEnv(t, false)

	var anon SessionResponse
	decode(t, env.do(t, http.MethodGet, "/api/session", "", ""), &anon)
	assert.Equal(t, services.ViewCTA, anon.View)
	assert.False(t, anon.Viewer.Authenticated)
	assert.Equal(t, "/signup", anon.SignupURL)

	var member SessionResponse
	decode(t, env.do(t, http.MethodGet, "/api/session", env.token(t, "alice"), ""), &member)
	assert.Equal(t, services.ViewForm, member.View)
	assert.Equal(t, "alice", member.Viewer.UserID)
}

func TestDraftLifecycle(t *testing.T) {
	env := newTestEnv(t, false)
	token := env.token(t, "alice")

	var d models.ArticleDraft
	w := env.do(t, http.MethodGet, "/api/draft", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &d)
	assert.Equal(t, []string{""}, d.Categories)
	assert.Equal(t, []string{""}, d.ImageURLs)
	assert.Equal(t, []string{""}, d.VideoURLs)
	assert.Empty(t, d.Title)

	w = env.do(t, http.MethodPost, "/api/draft/fields/categories", token, "")
	require.Equal(t, http.StatusCreated, w.Code)
	decode(t, w, &d)
	assert.Equal(t, []string{"", ""}, d.Categories)

	w = env.do(t, http.MethodPut, "/api/draft/fields/categories/1", token, `{"value":"Sports"}`)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &d)
	assert.Equal(t, []string{"", "Sports"}, d.Categories)

	w = env.do(t, http.MethodPut, "/api/draft/fields/title/0", token, `{"value":"Town Hall"}`)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &d)
	assert.Equal(t, "Town Hall", d.Title)

	var result models.SubmissionResult
	w = env.do(t, http.MethodPost, "/api/draft/submit", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w, &result)
	assert.Equal(t, "Article Submitted", resp.Message)
	assert.Equal(t, models.SubmissionTraced, result.Status)
	assert.Equal(t, "trace", result.Publisher)
	assert.NotEmpty(t, result.ID)

	entries := env.logs.FilterMessage("Article Submitted").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Town Hall", entries[0].ContextMap()["title"])

	w = env.do(t, http.MethodDelete, "/api/draft", token, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	decode(t, env.do(t, http.MethodGet, "/api/draft", token, ""), &d)
	assert.Equal(t, []string{""}, d.Categories)
	assert.Empty(t, d.Title)
}

func TestDraftFieldErrors(t *testing.T) {
	env := newTestEnv(t, false)
	token := env.token(t, "alice")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"index out of range", http.MethodPut, "/api/draft/fields/categories/3", `{"value":"x"}`, http.StatusBadRequest, "DRAFT_INDEX_OUT_OF_RANGE"},
		{"negative index", http.MethodPut, "/api/draft/fields/imageUrls/-1", `{"value":"x"}`, http.StatusBadRequest, "DRAFT_INDEX_OUT_OF_RANGE"},
		{"non numeric index", http.MethodPut, "/api/draft/fields/categories/abc", `{"value":"x"}`, http.StatusBadRequest, ErrorInvalidIndex},
		{"missing value", http.MethodPut, "/api/draft/fields/categories/0", `{}`, http.StatusBadRequest, ErrorBadRequest},
		{"unknown group", http.MethodPut, "/api/draft/fields/tags/0", `{"value":"x"}`, http.StatusBadRequest, draft.CodeUnknownGroup},
		{"title beyond index zero", http.MethodPut, "/api/draft/fields/title/1", `{"value":"x"}`, http.StatusBadRequest, "DRAFT_INDEX_OUT_OF_RANGE"},
		{"append to scalar", http.MethodPost, "/api/draft/fields/title", "", http.StatusBadRequest, "DRAFT_GROUP_NOT_LIST"},
		{"append unknown", http.MethodPost, "/api/draft/fields/tags", "", http.StatusBadRequest, draft.CodeUnknownGroup},
		{"group names are case sensitive", http.MethodPut, "/api/draft/fields/Title/0", `{"value":"x"}`, http.StatusBadRequest, draft.CodeUnknownGroup},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, tc.method, tc.path, token, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			resp := decode(t, w, nil)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.code, resp.Error.Code)
		})
	}

	// 失败的操作不改变草稿
	var d models.ArticleDraft
	decode(t, env.do(t, http.MethodGet, "/api/draft", token, ""), &d)
	assert.Equal(t, []string{""}, d.Categories)
	assert.Equal(t, []string{""}, d.ImageURLs)
}

func TestAppendFieldLimit(t *testing.T) {
	env := newTestEnv(t, false)
	token := env.token(t, "alice")

	for i := 0; i < 4; i++ {
		require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/draft/fields/videoUrls", token, "").Code)
	}
	w := env.do(t, http.MethodPost, "/api/draft/fields/videoUrls", token, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, services.CodeFieldLimit, decode(t, w, nil).Error.Code)
}

func TestDraftsAreIsolatedPerUser(t *testing.T) {
	env := newTestEnv(t, false)

	env.do(t, http.MethodPut, "/api/draft/fields/title/0", env.token(t, "alice"), `{"value":"Alice's"}`)

	var d models.ArticleDraft
	decode(t, env.do(t, http.MethodGet, "/api/draft", env.token(t, "bob"), ""), &d)
	assert.Empty(t, d.Title)
}

func TestDevToken(t *testing.T) {
	t.Run("enabled issues a usable token", func(t *testing.T) {
		env := newTestEnv(t, true)

		w := env.do(t, http.MethodPost, "/api/auth/dev-token", "", `{"user_id":"carol"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var body struct {
			Token  string `json:"token"`
			UserID string `json:"user_id"`
		}
		decode(t, w, &body)
		assert.Equal(t, "carol", body.UserID)

		var cookie *http.Cookie
		for _, c := range w.Result().Cookies() {
			if c.Name == TokenCookie {
				cookie = c
			}
		}
		require.NotNil(t, cookie)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, body.Token, cookie.Value)

		assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/draft", body.Token, "").Code)
	})

	t.Run("rejects bad user ids", func(t *testing.T) {
		env := newTestEnv(t, true)
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/auth/dev-token", "", `{}`).Code)
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/auth/dev-token", "", `{"user_id":"a|b"}`).Code)
	})

	t.Run("absent unless enabled", func(t *testing.T) {
		env := newTestEnv(t, false)
		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/auth/dev-token", "", `{"user_id":"carol"}`).Code)
	})
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)
	env.do(t, http.MethodGet, "/api/draft", env.token(t, "alice"), "")

	var body map[string]interface{}
	w := env.do(t, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["active_drafts"])
	assert.Equal(t, "trace", body["publisher"])
	assert.Contains(t, body, "metrics")
	assert.Equal(t, map[string]interface{}{
		"total_users":       float64(0),
		"total_connections": float64(0),
	}, body["websocket"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSubmissionStats(t *testing.T) {
	env := newTestEnv(t, false)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/stats", "", "").Code)

	store, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	stats := services.NewStatsService(store, 0, env.handler.Logger)
	env.handler.Stats = stats

	_, err = env.drafts.Submit(context.Background(), "alice")
	require.NoError(t, err)
	require.NoError(t, stats.RecordSubmission(models.SubmissionResult{ID: "x"}, "alice"))

	var got services.SubmissionStats
	w := env.do(t, http.MethodGet, "/api/stats", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &got)
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, 1, got.Authors["alice"])
}

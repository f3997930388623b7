package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Corphon/LocalVoice/internal/draft"
	"github.com/Corphon/LocalVoice/internal/models"
	"github.com/Corphon/LocalVoice/internal/storage"
	"github.com/Corphon/LocalVoice/internal/utils"
)

func TestJournalPublisherWritesEntries(t *testing.T) {
	store, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	pub := NewJournalPublisher(store, "", utils.NewLogger(zapcore.NewNopCore()))
	d, err := draft.Update(draft.New(), models.FieldTitle, 0, "Library reopening")
	require.NoError(t, err)

	req := models.SubmissionRequest{
		ID:          "sub-1",
		AuthorID:    "alice",
		Draft:       d,
		SubmittedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}
	res, err := pub.Publish(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionJournaled, res.Status)
	assert.Equal(t, "journal", res.Publisher)
	assert.True(t, store.FileExists("submissions", "20260301T093000_sub-1.json"))

	entries, err := pub.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Library reopening", entries[0].Draft.Title)
	assert.Equal(t, []string{""}, entries[0].Draft.Categories)
}

func TestPublishersHonourCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTracePublisher(utils.NewLogger(zapcore.NewNopCore())).Publish(ctx, models.SubmissionRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelectView(t *testing.T) {
	assert.Equal(t, ViewCTA, SelectView(models.Viewer{}))
	assert.Equal(t, ViewCTA, SelectView(models.Viewer{UserID: "x"}))
	assert.Equal(t, ViewForm, SelectView(models.Viewer{UserID: "x", Authenticated: true}))
}

func TestPageContentIsCopied(t *testing.T) {
	p := NewPageService()
	c := p.Content()
	require.Len(t, c.Cards, 3)
	c.Cards[0].Title = "changed"
	assert.Equal(t, "Create Content", p.Content().Cards[0].Title)
}

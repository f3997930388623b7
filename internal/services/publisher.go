// internal/services/publisher.go
package services

import (
	"context"
	"fmt"

	"github.com/Corphon/LocalVoice/internal/models"
	"github.com/Corphon/LocalVoice/internal/storage"
	"github.com/Corphon/LocalVoice/internal/utils"
)

// Publisher 文章发布协作方。真正的内容提交 API 由外部实现
type Publisher interface {
	Name() string
	Publish(ctx context.Context, req models.SubmissionRequest) (models.SubmissionResult, error)
}

// TracePublisher 只在诊断通道记录，不做任何外部调用
type TracePublisher struct {
	logger *utils.Logger
}

// NewTracePublisher 创建仅记录日志的发布器
func NewTracePublisher(logger *utils.Logger) *TracePublisher {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &TracePublisher{logger: logger}
}

// Name 发布器名称
func (p *TracePublisher) Name() string { return "trace" }

// Publish 记录提交并返回 traced 结果
func (p *TracePublisher) Publish(ctx context.Context, req models.SubmissionRequest) (models.SubmissionResult, error) {
	if err := ctx.Err(); err != nil {
		return models.SubmissionResult{}, err
	}
	p.logger.Debug("提交仅记录，未发布", map[string]interface{}{"submission_id": req.ID})
	return models.SubmissionResult{
		ID:          req.ID,
		Status:      models.SubmissionTraced,
		Publisher:   p.Name(),
		SubmittedAt: req.SubmittedAt,
	}, nil
}

// JournalPublisher 把提交请求写入本地 JSON 日志目录，供排查使用
type JournalPublisher struct {
	store  *storage.FileStorage
	dir    string
	logger *utils.Logger
}

// NewJournalPublisher 创建日志发布器
func NewJournalPublisher(store *storage.FileStorage, dir string, logger *utils.Logger) *JournalPublisher {
	if dir == "" {
		dir = "submissions"
	}
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &JournalPublisher{store: store, dir: dir, logger: logger}
}

// Name 发布器名称
func (p *JournalPublisher) Name() string { return "journal" }

// Publish 原子写入 <dir>/<时间>_<id>.json
func (p *JournalPublisher) Publish(ctx context.Context, req models.SubmissionRequest) (models.SubmissionResult, error) {
	if err := ctx.Err(); err != nil {
		return models.SubmissionResult{}, err
	}

	filename := fmt.Sprintf("%s_%s.json", req.SubmittedAt.UTC().Format("20060102T150405"), req.ID)
	if err := p.store.SaveJSONFile(p.dir, filename, req); err != nil {
		return models.SubmissionResult{}, fmt.Errorf("写入提交日志失败: %w", err)
	}

	p.logger.Info("提交已写入日志", map[string]interface{}{
		"submission_id": req.ID,
		"file":          filename,
	})
	return models.SubmissionResult{
		ID:          req.ID,
		Status:      models.SubmissionJournaled,
		Publisher:   p.Name(),
		SubmittedAt: req.SubmittedAt,
	}, nil
}

// Entries 返回日志目录中的全部提交，按文件名排序
func (p *JournalPublisher) Entries() ([]models.SubmissionRequest, error) {
	files, err := p.store.ListFiles(p.dir, ".json")
	if err != nil {
		return nil, err
	}
	out := make([]models.SubmissionRequest, 0, len(files))
	for _, f := range files {
		var req models.SubmissionRequest
		if err := p.store.LoadJSONFile(p.dir, f, &req); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

// internal/models/submission.go
package models

import "time"

// SubmissionRequest 发布请求，由草稿快照生成
type SubmissionRequest struct {
	ID          string       `json:"id"`
	AuthorID    string       `json:"author_id"`
	Draft       ArticleDraft `json:"draft"`
	SubmittedAt time.Time    `json:"submitted_at"`
}

// SubmissionStatus 发布结果状态
type SubmissionStatus string

const (
	// 仅记录到诊断通道，没有真正发布
	SubmissionTraced SubmissionStatus = "traced"
	// 已写入本地提交日志
	SubmissionJournaled SubmissionStatus = "journaled"
)

// SubmissionResult 发布结果
type SubmissionResult struct {
	ID          string           `json:"id"`
	Status      SubmissionStatus `json:"status"`
	Publisher   string           `json:"publisher"`
	SubmittedAt time.Time        `json:"submitted_at"`
}

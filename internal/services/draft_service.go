// internal/services/draft_service.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/Corphon/LocalVoice/internal/draft"
	apperrors "github.com/Corphon/LocalVoice/internal/errors"
	"github.com/Corphon/LocalVoice/internal/models"
	"github.com/Corphon/LocalVoice/internal/utils"
)

// CodeFieldLimit 字段条目超出上限
const CodeFieldLimit = "DRAFT_FIELD_LIMIT"

// DraftServiceOptions 草稿服务参数
type DraftServiceOptions struct {
	TTL             time.Duration // 空闲多久后丢弃草稿
	MaxFieldEntries int           // 单个列表字段最多条目数
	SweepSchedule   string        // cron 表达式，为空则不自动清理
	Publisher       Publisher
	Recorder        SubmissionRecorder // 可选，记录成功的提交
	Logger          *utils.Logger
	Metrics         *utils.MetricsCollector
	Now             func() time.Time
}

// draftSession 一次编辑会话
type draftSession struct {
	draft      models.ArticleDraft
	lastAccess time.Time
}

// DraftService 按用户保存未提交的文章草稿，所有修改在锁内串行执行
type DraftService struct {
	mu          sync.Mutex
	sessions    map[string]*draftSession
	subscribers map[string]map[uint64]chan models.ArticleDraft
	nextSubID   uint64

	ttl        time.Duration
	maxEntries int
	publisher  Publisher
	recorder   SubmissionRecorder
	logger     *utils.Logger
	metrics    *utils.MetricsCollector
	now        func() time.Time

	scheduler *cron.Cron
	closeOnce sync.Once
}

// NewDraftService 创建草稿服务
func NewDraftService(opts DraftServiceOptions) (*DraftService, error) {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.MaxFieldEntries <= 0 {
		opts.MaxFieldEntries = 50
	}
	if opts.Logger == nil {
		opts.Logger = utils.GetLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = utils.GetMetricsCollector()
	}
	if opts.Publisher == nil {
		opts.Publisher = NewTracePublisher(opts.Logger)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &DraftService{
		sessions:    make(map[string]*draftSession),
		subscribers: make(map[string]map[uint64]chan models.ArticleDraft),
		ttl:         opts.TTL,
		maxEntries:  opts.MaxFieldEntries,
		publisher:   opts.Publisher,
		recorder:    opts.Recorder,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		now:         opts.Now,
	}

	if opts.SweepSchedule != "" {
		s.scheduler = cron.New()
		if _, err := s.scheduler.AddFunc(opts.SweepSchedule, func() { s.SweepExpired() }); err != nil {
			return nil, fmt.Errorf("无效的草稿清理计划 %q: %w", opts.SweepSchedule, err)
		}
		s.scheduler.Start()
	}

	return s, nil
}

// Close 停止定时清理并关闭所有订阅
func (s *DraftService) Close() error {
	s.closeOnce.Do(func() {
		if s.scheduler != nil {
			<-s.scheduler.Stop().Done()
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		for userID, subs := range s.subscribers {
			for id, ch := range subs {
				close(ch)
				delete(subs, id)
			}
			delete(s.subscribers, userID)
		}
	})
	return nil
}

// Publisher 返回当前发布器名称
func (s *DraftService) Publisher() string {
	return s.publisher.Name()
}

func requireUser(userID string) error {
	if userID == "" {
		return apperrors.NewUnauthorizedError("sign in to write an article", nil)
	}
	return nil
}

// sessionLocked 获取或创建会话，调用方需持有 mu
func (s *DraftService) sessionLocked(userID string) *draftSession {
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &draftSession{draft: draft.New()}
		sess.draft.UpdatedAt = s.now()
		s.sessions[userID] = sess
		s.metrics.IncrementCounter(utils.MetricDraftsMounted)
		s.metrics.SetGauge(utils.MetricDraftsActive, int64(len(s.sessions)))
		s.logger.Debug("草稿会话已创建", map[string]interface{}{"user_id": userID})
	}
	sess.lastAccess = s.now()
	return sess
}

// Get 返回用户当前草稿的副本，首次访问时创建初始草稿
func (s *DraftService) Get(userID string) (models.ArticleDraft, error) {
	if err := requireUser(userID); err != nil {
		return models.ArticleDraft{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return draft.Clone(s.sessionLocked(userID).draft), nil
}

// UpdateField 替换字段组中指定位置的值
func (s *DraftService) UpdateField(userID string, group models.FieldGroup, index int, value string) (models.ArticleDraft, error) {
	return s.mutate(userID, func(d models.ArticleDraft) (models.ArticleDraft, error) {
		next, err := draft.Update(d, group, index, value)
		if err == nil {
			s.metrics.IncrementCounter(utils.MetricFieldUpdates)
		}
		return next, err
	})
}

// ApplyValues 批量写入一个字段组的所有值，用于整表单提交
func (s *DraftService) ApplyValues(userID string, group models.FieldGroup, values []string) (models.ArticleDraft, error) {
	return s.mutate(userID, func(d models.ArticleDraft) (models.ArticleDraft, error) {
		var err error
		for i, v := range values {
			if d, err = draft.Update(d, group, i, v); err != nil {
				return d, err
			}
		}
		s.metrics.AddCounter(utils.MetricFieldUpdates, int64(len(values)))
		return d, nil
	})
}

// AppendField 在列表字段组末尾追加一个空值
func (s *DraftService) AppendField(userID string, group models.FieldGroup) (models.ArticleDraft, error) {
	return s.mutate(userID, func(d models.ArticleDraft) (models.ArticleDraft, error) {
		if group.IsList() && draft.Len(d, group) >= s.maxEntries {
			return d, apperrors.NewValidationError(
				fmt.Sprintf("%s already has %d entries", group, s.maxEntries), nil,
			).WithCode(CodeFieldLimit)
		}
		next, err := draft.Append(d, group)
		if err == nil {
			s.metrics.IncrementCounter(utils.MetricFieldAppends)
		}
		return next, err
	})
}

func (s *DraftService) mutate(userID string, fn func(models.ArticleDraft) (models.ArticleDraft, error)) (models.ArticleDraft, error) {
	if err := requireUser(userID); err != nil {
		return models.ArticleDraft{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessionLocked(userID)
	next, err := fn(sess.draft)
	if err != nil {
		return draft.Clone(sess.draft), err
	}
	next.UpdatedAt = s.now()
	sess.draft = next
	s.broadcastLocked(userID, next)
	return draft.Clone(next), nil
}

// Submit 将草稿快照交给发布器。草稿在提交后保留
func (s *DraftService) Submit(ctx context.Context, userID string) (models.SubmissionResult, error) {
	if err := requireUser(userID); err != nil {
		return models.SubmissionResult{}, err
	}

	s.mu.Lock()
	snapshot := draft.Clone(s.sessionLocked(userID).draft)
	s.mu.Unlock()

	req := models.SubmissionRequest{
		ID:          uuid.NewString(),
		AuthorID:    userID,
		Draft:       snapshot,
		SubmittedAt: s.now(),
	}

	s.logger.Info("Article Submitted", map[string]interface{}{
		"submission_id": req.ID,
		"user_id":       userID,
		"title":         snapshot.Title,
		"content":       snapshot.Content,
		"categories":    snapshot.Categories,
		"image_urls":    snapshot.ImageURLs,
		"video_urls":    snapshot.VideoURLs,
		"publisher":     s.publisher.Name(),
	})

	result, err := s.publisher.Publish(ctx, req)
	if err != nil {
		s.metrics.IncrementCounter(utils.MetricSubmissionErrors)
		s.logger.Error("发布草稿失败", map[string]interface{}{
			"submission_id": req.ID,
			"error":         err.Error(),
		})
		return models.SubmissionResult{}, apperrors.WrapError(err, "publish article", apperrors.ErrorTypeUnavailable)
	}

	s.metrics.IncrementCounter(utils.MetricSubmissions)
	if s.recorder != nil {
		if err := s.recorder.RecordSubmission(result, userID); err != nil {
			s.logger.Warn("记录提交统计失败", map[string]interface{}{"error": err.Error()})
		}
	}
	return result, nil
}

// Reset 丢弃用户草稿，下次访问时重新创建
func (s *DraftService) Reset(userID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[userID]; ok {
		delete(s.sessions, userID)
		s.metrics.SetGauge(utils.MetricDraftsActive, int64(len(s.sessions)))
	}
	s.broadcastLocked(userID, draft.New())
	return nil
}

// SweepExpired 清理超过空闲时间且没有订阅者的草稿，返回清理数量
func (s *DraftService) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for userID, sess := range s.sessions {
		if len(s.subscribers[userID]) > 0 {
			continue
		}
		if sess.lastAccess.Before(cutoff) {
			delete(s.sessions, userID)
			removed++
		}
	}

	if removed > 0 {
		s.metrics.AddCounter(utils.MetricDraftsExpired, int64(removed))
		s.metrics.SetGauge(utils.MetricDraftsActive, int64(len(s.sessions)))
		s.logger.Info("过期草稿已清理", map[string]interface{}{
			"removed":   removed,
			"remaining": len(s.sessions),
		})
	}
	return removed
}

// Count 当前活动草稿数量
func (s *DraftService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Subscribe 订阅用户草稿变更。通道中的第一条是订阅时的当前草稿，
// 之后按修改顺序推送。返回的取消函数可重复调用
func (s *DraftService) Subscribe(userID string) (<-chan models.ArticleDraft, func(), error) {
	if err := requireUser(userID); err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	ch := make(chan models.ArticleDraft, 8)
	if s.subscribers[userID] == nil {
		s.subscribers[userID] = make(map[uint64]chan models.ArticleDraft)
	}
	s.subscribers[userID][id] = ch
	ch <- draft.Clone(s.sessionLocked(userID).draft)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			subs := s.subscribers[userID]
			if c, ok := subs[id]; ok {
				close(c)
				delete(subs, id)
			}
			if len(subs) == 0 {
				delete(s.subscribers, userID)
			}
		})
	}
	return ch, cancel, nil
}

// broadcastLocked 推送草稿副本，队列满时丢弃，调用方需持有 mu
func (s *DraftService) broadcastLocked(userID string, d models.ArticleDraft) {
	for id, ch := range s.subscribers[userID] {
		select {
		case ch <- draft.Clone(d):
		default:
			s.logger.Warn("草稿订阅队列已满，消息被丢弃", map[string]interface{}{
				"user_id":       userID,
				"subscriber_id": id,
			})
		}
	}
}

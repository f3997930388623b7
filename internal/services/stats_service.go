// internal/services/stats_service.go
package services

import (
	"maps"
	"sync"
	"time"

	"github.com/Corphon/LocalVoice/internal/models"
	"github.com/Corphon/LocalVoice/internal/storage"
	"github.com/Corphon/LocalVoice/internal/utils"
)

const (
	statsDir  = "stats"
	statsFile = "submission_stats.json"
)

// SubmissionRecorder 接收成功的提交
type SubmissionRecorder interface {
	RecordSubmission(result models.SubmissionResult, authorID string) error
}

// SubmissionStats 提交统计
type SubmissionStats struct {
	Today        int            `json:"today"`
	ThisMonth    int            `json:"this_month"`
	Total        int            `json:"total"`
	DailyStats   map[string]int `json:"daily_stats"`
	MonthlyStats map[string]int `json:"monthly_stats"`
	Authors      map[string]int `json:"authors"`
	LastUpdated  time.Time      `json:"last_updated"`
}

func newSubmissionStats(now time.Time) *SubmissionStats {
	return &SubmissionStats{
		DailyStats:   make(map[string]int),
		MonthlyStats: make(map[string]int),
		Authors:      make(map[string]int),
		LastUpdated:  now,
	}
}

// StatsService 统计提交次数，定期写入存储
type StatsService struct {
	store  *storage.FileStorage
	logger *utils.Logger
	now    func() time.Time

	mutex       sync.Mutex
	cachedStats *SubmissionStats
	isDirty     bool

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewStatsService 创建统计服务，saveInterval<=0 时只在 Close 时保存
func NewStatsService(store *storage.FileStorage, saveInterval time.Duration, logger *utils.Logger) *StatsService {
	if logger == nil {
		logger = utils.GetLogger()
	}
	s := &StatsService{
		store:  store,
		logger: logger,
		now:    time.Now,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.cachedStats = s.load()

	if saveInterval > 0 {
		go s.periodicSave(saveInterval)
	} else {
		close(s.done)
	}
	return s
}

// load 读取已保存的统计，失败时从零开始
func (s *StatsService) load() *SubmissionStats {
	stats := newSubmissionStats(s.now())
	if !s.store.FileExists(statsDir, statsFile) {
		return stats
	}
	if err := s.store.LoadJSONFile(statsDir, statsFile, stats); err != nil {
		s.logger.Warn("读取提交统计失败，重新计数", map[string]interface{}{"error": err.Error()})
		return newSubmissionStats(s.now())
	}
	// 确保映射已初始化
	if stats.DailyStats == nil {
		stats.DailyStats = make(map[string]int)
	}
	if stats.MonthlyStats == nil {
		stats.MonthlyStats = make(map[string]int)
	}
	if stats.Authors == nil {
		stats.Authors = make(map[string]int)
	}
	return stats
}

// rollPeriodLocked 跨天或跨月时重置当期计数
func (s *StatsService) rollPeriodLocked(now time.Time) {
	last := s.cachedStats.LastUpdated
	if now.Format("2006-01-02") != last.Format("2006-01-02") {
		s.cachedStats.Today = 0
	}
	if now.Format("2006-01") != last.Format("2006-01") {
		s.cachedStats.ThisMonth = 0
	}
}

// RecordSubmission 记录一次成功的提交
func (s *StatsService) RecordSubmission(result models.SubmissionResult, authorID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	s.rollPeriodLocked(now)

	s.cachedStats.Today++
	s.cachedStats.ThisMonth++
	s.cachedStats.Total++
	s.cachedStats.DailyStats[now.Format("2006-01-02")]++
	s.cachedStats.MonthlyStats[now.Format("2006-01")]++
	s.cachedStats.Authors[authorID]++
	s.cachedStats.LastUpdated = now
	s.isDirty = true
	return nil
}

// GetStats 返回统计副本
func (s *StatsService) GetStats() SubmissionStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	out := *s.cachedStats
	if now.Format("2006-01-02") != out.LastUpdated.Format("2006-01-02") {
		out.Today = 0
	}
	if now.Format("2006-01") != out.LastUpdated.Format("2006-01") {
		out.ThisMonth = 0
	}
	out.DailyStats = maps.Clone(s.cachedStats.DailyStats)
	out.MonthlyStats = maps.Clone(s.cachedStats.MonthlyStats)
	out.Authors = maps.Clone(s.cachedStats.Authors)
	return out
}

// Flush 保存未写入的统计
func (s *StatsService) Flush() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.saveLocked()
}

func (s *StatsService) saveLocked() error {
	if !s.isDirty {
		return nil
	}
	if err := s.store.SaveJSONFile(statsDir, statsFile, s.cachedStats); err != nil {
		return err
	}
	s.isDirty = false
	return nil
}

// 定时保存机制
func (s *StatsService) periodicSave(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Flush(); err != nil {
				s.logger.Warn("定时保存提交统计失败", map[string]interface{}{"error": err.Error()})
			}
		case <-s.stop:
			return
		}
	}
}

// Close 停止定时保存并写入剩余数据
func (s *StatsService) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	return s.Flush()
}

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"crossborder_rag/config"
	"crossborder_rag/logger"
	"crossborder_rag/models"
)

// 将秒数转换为时间间隔
func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// IngestRunner 执行一次RSS入库
type IngestRunner interface {
	Run(ctx context.Context) (models.IngestStats, error)
}

// 任务类型
type TaskType int

const (
	TaskIngest TaskType = iota
)

// 任务状态
type TaskStatus struct {
	LastRun     time.Time
	NextRun     time.Time
	IsRunning   bool
	Description string
	LastStats   models.IngestStats
}

// 任务调度器
type Scheduler struct {
	ingest         IngestRunner
	checkInterval  time.Duration
	ingestInterval time.Duration
	runTimeout     time.Duration
	tasks          map[TaskType]*TaskStatus
	mutex          sync.Mutex
	wg             sync.WaitGroup
}

// 创建新的调度器
func NewScheduler(cfg *config.Config, ingest IngestRunner) *Scheduler {
	checkInterval := cfg.Scheduler.CheckIntervalSec
	if checkInterval <= 0 {
		checkInterval = 60 // 默认值
	}
	ingestMin := cfg.Scheduler.IngestIntervalMin
	if ingestMin <= 0 {
		ingestMin = 180
	}

	return &Scheduler{
		ingest:         ingest,
		checkInterval:  secondsToDuration(checkInterval),
		ingestInterval: time.Duration(ingestMin) * time.Minute,
		runTimeout:     30 * time.Minute,
		tasks:          make(map[TaskType]*TaskStatus),
	}
}

// 启动调度器，ctx取消后主循环退出
func Start(ctx context.Context, cfg *config.Config, ingest IngestRunner) *Scheduler {
	scheduler := NewScheduler(cfg, ingest)

	// 初始化任务
	scheduler.initTasks(time.Now())

	// 启动主循环
	go scheduler.run(ctx)

	logger.Info("调度器已启动", "check_interval", scheduler.checkInterval, "ingest_interval", scheduler.ingestInterval)
	return scheduler
}

// 初始化任务，首次检查即执行入库
func (s *Scheduler) initTasks(now time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.tasks[TaskIngest] = &TaskStatus{
		NextRun:     now,
		Description: fmt.Sprintf("RSS入库 (每%d分钟)", int(s.ingestInterval/time.Minute)),
	}
	logger.Info("定时任务初始化完成", "task_count", len(s.tasks))
}

// 主循环
func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("调度器已停止")
			return
		case now := <-ticker.C:
			s.checkTasks(ctx, now)
		}
	}
}

// 检查任务
func (s *Scheduler) checkTasks(ctx context.Context, now time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for taskType, status := range s.tasks {
		// 如果任务正在运行，跳过
		if status.IsRunning {
			continue
		}
		if status.NextRun.IsZero() {
			continue
		}

		if !now.Before(status.NextRun) {
			status.IsRunning = true
			s.wg.Add(1)
			go s.runTask(ctx, taskType, now)
		}
	}
}

// 运行任务
func (s *Scheduler) runTask(ctx context.Context, taskType TaskType, now time.Time) {
	defer s.wg.Done()

	var stats models.IngestStats
	defer func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()

		status := s.tasks[taskType]
		status.IsRunning = false
		status.LastRun = now
		status.LastStats = stats
		status.NextRun = now.Add(s.ingestInterval)

		logger.Info("任务执行完成", "task", status.Description, "next_run", status.NextRun.Format("2006-01-02 15:04:05"))
	}()

	switch taskType {
	case TaskIngest:
		logger.Info("开始执行任务", "task", "RSS入库")
		runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
		defer cancel()

		var err error
		stats, err = s.ingest.Run(runCtx)
		if err != nil {
			logger.Error("定时入库失败", "error", err)
			return
		}
		logger.Info("定时入库完成", "inserted", stats.Inserted, "skipped", stats.Skipped, "filtered", stats.Filtered, "errors", stats.Errors)
	}
}

// Status 返回任务状态的副本
func (s *Scheduler) Status(taskType TaskType) (TaskStatus, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	status, ok := s.tasks[taskType]
	if !ok {
		return TaskStatus{}, false
	}
	return *status, true
}

// Wait 等待已触发的任务结束
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

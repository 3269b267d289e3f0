package cron

import (
	"Beacon/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine           *cron.Cron
	spec             string
	analyticsRefresh *job.AnalyticsRefreshJob
}

func NewCronManager(spec string, analyticsRefresh *job.AnalyticsRefreshJob) *Manager {
	return &Manager{
		engine:           cron.New(cron.WithSeconds()),
		spec:             spec,
		analyticsRefresh: analyticsRefresh,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if s.spec == "" {
		log.Warn("analytics refresh cron disabled")
		return nil
	}
	if _, err := s.engine.AddJob(s.spec, s.analyticsRefresh); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	<-s.engine.Stop().Done()
}

package schedulers

import (
	"context"
	"fmt"
	"time"

	"jetstore/internal/config"
	"jetstore/internal/services"
	"jetstore/internal/util"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var log = config.InitLogger()

const refreshTimeout = time.Minute

type Scheduler struct {
	cron *cron.Cron
}

func New() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// Add registers job under a standard cron spec or a descriptor such as "@every 10m".
func (s *Scheduler) Add(spec string, job func()) error {
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("add job %q: %w", spec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Infof("Scheduler started with %d jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info("Scheduler stopped")
}

// RefreshReferralSnapshot rebuilds the cached reporting snapshot and logs its totals.
func RefreshReferralSnapshot(rs *services.ReportService) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		if _, err := rs.Refresh(ctx); err != nil {
			log.Error("Failed to refresh referral snapshot: ", err)
			return
		}
		sum, err := rs.Summary(ctx)
		if err != nil {
			log.Error("Failed to summarize referral snapshot: ", err)
			return
		}
		log.WithFields(logrus.Fields{
			"users":    sum.Users,
			"enrolled": sum.Enrolled,
			"earned":   util.FormatMoney(sum.Earned),
			"volume":   util.FormatMoney(sum.Volume),
		}).Info("Referral snapshot refreshed")
	}
}

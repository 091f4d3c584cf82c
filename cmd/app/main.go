package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"jetstore/internal/config"
	"jetstore/internal/database"
	"jetstore/internal/models"
	"jetstore/internal/monitoring"
	"jetstore/internal/repositories"
	"jetstore/internal/schedulers"
	"jetstore/internal/services"
)

func main() {
	logger := config.InitLogger()
	if err := config.InitConfig(); err != nil {
		logger.Fatalf("Failed to init config: %v", err)
	}

	cfg, err := config.LoadAppConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	schedule, err := models.ParseCommissionSchedule(cfg.ReferralRates)
	if err != nil {
		logger.Fatalf("Failed to parse referral rates: %v", err)
	}
	logger.Infoln("Config initialized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	psql := database.Open(cfg.Postgres)
	defer func() {
		if err := psql.Close(); err != nil {
			logger.Error("Failed to close database: ", err)
		}
	}()

	rdb, err := database.NewRedis(cfg.Redis.URL)
	if err != nil {
		logger.Warn("Redis is unavailable, reports read through to the store: ", err)
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	balanceRepo := repositories.NewBalanceRepository(psql)
	referralRepo := repositories.NewReferralRepository(psql)

	app := &services.Ledger{
		Balances:  services.NewBalanceService(balanceRepo),
		Accruals:  services.NewAccrualService(referralRepo),
		Referrals: services.NewReferralService(referralRepo),
		Withdraw:  services.NewWithdrawService(psql, referralRepo, balanceRepo),
		Reports:   services.NewReportService(referralRepo, rdb, cfg.ReportCacheTTL),
		Schedule:  schedule,
	}
	logger.Infof("Ledger ready, store authoritative: %v", app.Balances.Authoritative())

	sched := schedulers.New()
	if err := sched.Add(cfg.ReportRefreshSpec, schedulers.RefreshReferralSnapshot(app.Reports)); err != nil {
		logger.Fatalf("Failed to schedule snapshot refresh: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if cfg.MetricsAddr != "" {
		go func() {
			logger.Infoln("Metrics listening on", cfg.MetricsAddr)
			if err := monitoring.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Error("Metrics server stopped: ", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Infoln("Shutting down")
}

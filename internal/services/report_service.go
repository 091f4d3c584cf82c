package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"jetstore/internal/models"
	"jetstore/internal/util"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const referralSnapshotKey = "jetstore:referrals:snapshot"

const cacheTimeout = 5 * time.Second

// ReferralSummary is the aggregate shown in reports.
type ReferralSummary struct {
	Users    int
	Enrolled int
	Earned   models.Money
	Volume   models.Money
}

// ReportService serves the all-records referral snapshot. Reporting tolerates a
// stale view, so the snapshot is cached in redis for ttl. A nil client reads
// through to the store on every call.
type ReportService struct {
	refs     SnapshotStore
	redisCli *redis.Client
	ttl      time.Duration
}

func NewReportService(refs SnapshotStore, redisCli *redis.Client, ttl time.Duration) *ReportService {
	return &ReportService{
		refs:     refs,
		redisCli: redisCli,
		ttl:      ttl,
	}
}

func (s *ReportService) Referrals(ctx context.Context) (map[string]models.ReferralRecord, error) {
	if cached, ok := s.loadCached(ctx); ok {
		return cached, nil
	}
	return s.Refresh(ctx)
}

// Refresh reloads the snapshot from the store and replaces the cached copy.
func (s *ReportService) Refresh(ctx context.Context) (map[string]models.ReferralRecord, error) {
	all, err := s.refs.LoadAll(ctx)
	if err != nil {
		log.Error("Failed to load referral snapshot: ", err)
		return nil, err
	}
	s.saveCached(ctx, all)
	return all, nil
}

// TopReferrers ranks records by earned, then volume, then user id.
func (s *ReportService) TopReferrers(ctx context.Context, n int) ([]models.ReferralRecord, error) {
	all, err := s.Referrals(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]models.ReferralRecord, 0, len(all))
	for _, rec := range all {
		res = append(res, rec)
	}
	sort.Slice(res, func(i, j int) bool {
		if c := res[i].Earned.Cmp(res[j].Earned); c != 0 {
			return c > 0
		}
		if c := res[i].Volume.Cmp(res[j].Volume); c != 0 {
			return c > 0
		}
		return res[i].UserID < res[j].UserID
	})

	if n >= 0 && n < len(res) {
		res = res[:n]
	}
	return res, nil
}

// RatingText renders the top n referrers for the rating screen, one line each.
func (s *ReportService) RatingText(ctx context.Context, n int) (string, error) {
	top, err := s.TopReferrers(ctx, n)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i, rec := range top {
		name := rec.FirstName
		if rec.Username != "" {
			name = "@" + rec.Username
		}
		if name == "" {
			name = rec.UserID
		}
		fmt.Fprintf(&sb, "%d. %s: %s, %s\n", i+1, name, util.FormatMoney(rec.EarnedMoney()), util.ReferralsCount(len(rec.ReferralsL1)))
	}
	return sb.String(), nil
}

func (s *ReportService) Summary(ctx context.Context) (ReferralSummary, error) {
	all, err := s.Referrals(ctx)
	if err != nil {
		return ReferralSummary{}, err
	}
	return summarize(all), nil
}

func summarize(all map[string]models.ReferralRecord) ReferralSummary {
	earned, volume := decimal.Zero, decimal.Zero
	sum := ReferralSummary{Users: len(all)}
	for _, rec := range all {
		if rec.HasParent() {
			sum.Enrolled++
		}
		earned = earned.Add(rec.Earned)
		volume = volume.Add(rec.Volume)
	}
	sum.Earned = models.NewMoney(earned, models.CurrencyRUB)
	sum.Volume = models.NewMoney(volume, models.CurrencyRUB)
	return sum
}

func (s *ReportService) loadCached(ctx context.Context) (map[string]models.ReferralRecord, bool) {
	if s.redisCli == nil {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	data, err := s.redisCli.Get(ctx, referralSnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		log.Warn("Error loading referral snapshot from cache: ", err)
		return nil, false
	}

	var all map[string]models.ReferralRecord
	if err := json.Unmarshal(data, &all); err != nil {
		log.Warn("Error decoding cached referral snapshot: ", err)
		return nil, false
	}
	return all, true
}

func (s *ReportService) saveCached(ctx context.Context, all map[string]models.ReferralRecord) {
	if s.redisCli == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	data, err := json.Marshal(all)
	if err != nil {
		log.Error("Error marshaling referral snapshot json: ", err)
		return
	}
	if err := s.redisCli.Set(ctx, referralSnapshotKey, data, s.ttl).Err(); err != nil {
		log.Warn("Error caching referral snapshot: ", err)
	}
}

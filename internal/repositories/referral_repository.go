package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"jetstore/internal/database"
	"jetstore/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ReferralRepository owns the referrals table: the ancestor chain of every user,
// the per-level lists of descendants and the accrued earned/volume totals.
type ReferralRepository struct {
	base
}

func NewReferralRepository(store *database.Postgres) *ReferralRepository {
	return &ReferralRepository{base: newBase(store)}
}

func (r *ReferralRepository) WithClock(now func() time.Time) *ReferralRepository {
	c := *r
	c.now = now
	return &c
}

func (r *ReferralRepository) WithTx(tx *sqlx.Tx) *ReferralRepository {
	c := *r
	c.q = tx
	return &c
}

func (r *ReferralRepository) Available() bool {
	return r.available()
}

// Find reads a record without creating it. found is false for a missing row and
// for a disabled store.
func (r *ReferralRepository) Find(ctx context.Context, userID string) (models.ReferralRecord, bool, error) {
	return r.find(ctx, userID, "")
}

// FindForUpdate is Find with a row lock. It only holds the lock under WithTx.
func (r *ReferralRepository) FindForUpdate(ctx context.Context, userID string) (models.ReferralRecord, bool, error) {
	return r.find(ctx, userID, " for update")
}

func (r *ReferralRepository) find(ctx context.Context, userID, lock string) (rec models.ReferralRecord, found bool, err error) {
	if !r.available() {
		return models.ReferralRecord{}, false, nil
	}

	ctx, done := r.withTimeout(ctx, "referral_find")
	defer done()

	var row referralRow
	err = sqlx.GetContext(ctx, r.q, &row, "select "+referralColumns+" from referrals where user_id = $1"+lock, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ReferralRecord{}, false, nil
	}
	if err != nil {
		log.Error("Failed to find referral: ", err)
		return models.ReferralRecord{}, false, classify("find referral", err)
	}

	rec, err = row.decode()
	if err != nil {
		log.Error("Failed to decode referral: ", err)
		return models.ReferralRecord{}, false, err
	}
	return rec, true, nil
}

// GetOrCreate returns the stored record or inserts the empty default. Racing first
// touches converge on one row because the insert ignores conflicts. With the store
// disabled the empty default is returned without error.
func (r *ReferralRepository) GetOrCreate(ctx context.Context, userID string) (models.ReferralRecord, error) {
	if !r.available() {
		return models.NewReferralRecord(userID), nil
	}
	if userID == "" {
		return models.ReferralRecord{}, fmt.Errorf("%w: empty user id", ErrInvalidChain)
	}

	rec, found, err := r.Find(ctx, userID)
	if err != nil || found {
		return rec, err
	}

	if err := r.insertDefault(ctx, userID); err != nil {
		return models.ReferralRecord{}, err
	}

	rec, found, err = r.Find(ctx, userID)
	if err != nil {
		return models.ReferralRecord{}, err
	}
	if !found {
		return models.ReferralRecord{}, fmt.Errorf("referral %s missing after insert", userID)
	}
	return rec, nil
}

func (r *ReferralRepository) insertDefault(ctx context.Context, userID string) error {
	ctx, done := r.withTimeout(ctx, "referral_insert")
	defer done()

	if _, err := r.q.ExecContext(
		ctx,
		"insert into referrals (user_id, updated_at) values ($1, $2) on conflict (user_id) do nothing",
		userID,
		r.now(),
	); err != nil {
		log.Error("Failed to insert referral: ", err)
		return classify("insert referral", err)
	}
	return nil
}

// Save upserts the record wholesale. The ancestor chain is the exception: once a row
// has parent1 its chain is kept as is, so a later enrollment never rewrites it.
func (r *ReferralRepository) Save(ctx context.Context, rec models.ReferralRecord) error {
	if err := rec.ValidateChain(); err != nil {
		return err
	}
	if rec.Earned.IsNegative() || rec.Volume.IsNegative() {
		return fmt.Errorf("%w: negative earned or volume for %s", ErrInvalidAmount, rec.UserID)
	}
	if !r.available() {
		return ErrStoreUnavailable
	}

	ctx, done := r.withTimeout(ctx, "referral_save")
	defer done()

	_, err := r.q.ExecContext(
		ctx,
		`insert into referrals (user_id, parent1, parent2, parent3, referrals_l1, referrals_l2, referrals_l3, earned_rub, volume_rub, username, first_name, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		on conflict (user_id) do update set
			parent1 = case when referrals.parent1 is null then excluded.parent1 else referrals.parent1 end,
			parent2 = case when referrals.parent1 is null then excluded.parent2 else referrals.parent2 end,
			parent3 = case when referrals.parent1 is null then excluded.parent3 else referrals.parent3 end,
			referrals_l1 = excluded.referrals_l1,
			referrals_l2 = excluded.referrals_l2,
			referrals_l3 = excluded.referrals_l3,
			earned_rub = excluded.earned_rub,
			volume_rub = excluded.volume_rub,
			username = excluded.username,
			first_name = excluded.first_name,
			updated_at = excluded.updated_at`,
		rec.UserID,
		nullString(rec.Parent1),
		nullString(rec.Parent2),
		nullString(rec.Parent3),
		encodeList(rec.ReferralsL1),
		encodeList(rec.ReferralsL2),
		encodeList(rec.ReferralsL3),
		rec.Earned.Round(2),
		rec.Volume.Round(2),
		rec.Username,
		rec.FirstName,
		r.now(),
	)
	if err != nil {
		log.Error("Failed to save referral: ", err)
		return classify("save referral", err)
	}
	return nil
}

// SaveEnrollment upserts only the ancestor chain and the profile fields. Totals and
// descendant lists are left to their own atomic statements. As with Save, a stored
// chain is never replaced.
func (r *ReferralRepository) SaveEnrollment(ctx context.Context, rec models.ReferralRecord) error {
	if err := rec.ValidateChain(); err != nil {
		return err
	}
	if !r.available() {
		return ErrStoreUnavailable
	}

	ctx, done := r.withTimeout(ctx, "referral_save_enrollment")
	defer done()

	_, err := r.q.ExecContext(
		ctx,
		`insert into referrals (user_id, parent1, parent2, parent3, username, first_name, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7)
		on conflict (user_id) do update set
			parent1 = case when referrals.parent1 is null then excluded.parent1 else referrals.parent1 end,
			parent2 = case when referrals.parent1 is null then excluded.parent2 else referrals.parent2 end,
			parent3 = case when referrals.parent1 is null then excluded.parent3 else referrals.parent3 end,
			username = excluded.username,
			first_name = excluded.first_name,
			updated_at = excluded.updated_at`,
		rec.UserID,
		nullString(rec.Parent1),
		nullString(rec.Parent2),
		nullString(rec.Parent3),
		rec.Username,
		rec.FirstName,
		r.now(),
	)
	if err != nil {
		log.Error("Failed to save enrollment: ", err)
		return classify("save enrollment", err)
	}
	return nil
}

// AddAccrual adds both deltas to an existing row in one statement. A missing row is
// left missing: applied is false and no error is returned.
func (r *ReferralRepository) AddAccrual(ctx context.Context, userID string, volumeDelta, earnedDelta decimal.Decimal) (applied bool, err error) {
	if volumeDelta.IsNegative() || earnedDelta.IsNegative() {
		return false, fmt.Errorf("%w: accrual deltas must not be negative", ErrInvalidAmount)
	}
	if !r.available() {
		return false, ErrStoreUnavailable
	}

	ctx, done := r.withTimeout(ctx, "referral_add_accrual")
	defer done()

	res, err := r.q.ExecContext(
		ctx,
		`update referrals set
			volume_rub = volume_rub + $2,
			earned_rub = earned_rub + $3,
			updated_at = $4
		where user_id = $1`,
		userID,
		volumeDelta.Round(2),
		earnedDelta.Round(2),
		r.now(),
	)
	if err != nil {
		log.Error("Failed to add accrual: ", err)
		return false, classify("add accrual", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("add accrual", err)
	}

	log.WithFields(logrus.Fields{
		"user_id": userID,
		"volume":  volumeDelta.StringFixed(2),
		"earned":  earnedDelta.StringFixed(2),
		"applied": n > 0,
	}).Debug("Referral accrual")
	return n > 0, nil
}

// SetEarned overwrites earned_rub only; volume is untouched.
func (r *ReferralRepository) SetEarned(ctx context.Context, userID string, earned decimal.Decimal) (bool, error) {
	if earned.IsNegative() {
		return false, fmt.Errorf("%w: earned must not be negative", ErrInvalidAmount)
	}
	if !r.available() {
		return false, ErrStoreUnavailable
	}

	ctx, done := r.withTimeout(ctx, "referral_set_earned")
	defer done()

	res, err := r.q.ExecContext(
		ctx,
		"update referrals set earned_rub = $2, updated_at = $3 where user_id = $1",
		userID,
		earned.Round(2),
		r.now(),
	)
	if err != nil {
		log.Error("Failed to set earned: ", err)
		return false, classify("set earned", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("set earned", err)
	}
	return n > 0, nil
}

// AppendReferral adds userID to the ancestor's list for level unless it is already
// there. The lists only ever grow.
func (r *ReferralRepository) AppendReferral(ctx context.Context, ancestorID string, level int, userID string) (bool, error) {
	column, err := referralListColumn(level)
	if err != nil {
		return false, err
	}
	if ancestorID == "" || userID == "" || ancestorID == userID {
		return false, fmt.Errorf("%w: cannot list %q under %q", ErrInvalidChain, userID, ancestorID)
	}
	if !r.available() {
		return false, ErrStoreUnavailable
	}

	ctx, done := r.withTimeout(ctx, "referral_append")
	defer done()

	res, err := r.q.ExecContext(
		ctx,
		fmt.Sprintf(
			`update referrals set %[1]s = array_append(%[1]s, $2::text), updated_at = $3
			where user_id = $1 and not ($2::text = any(%[1]s))`,
			column,
		),
		ancestorID,
		userID,
		r.now(),
	)
	if err != nil {
		log.Error("Failed to append referral: ", err)
		return false, classify("append referral", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("append referral", err)
	}
	return n > 0, nil
}

// LoadAll is a reporting snapshot. Rows are read in one statement but carry no
// settlement guarantee across users.
func (r *ReferralRepository) LoadAll(ctx context.Context) (map[string]models.ReferralRecord, error) {
	if !r.available() {
		return map[string]models.ReferralRecord{}, nil
	}

	ctx, done := r.withTimeout(ctx, "referral_load_all")
	defer done()

	var rows []referralRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, "select "+referralColumns+" from referrals"); err != nil {
		log.Error("Failed to load referrals: ", err)
		return nil, classify("load referrals", err)
	}

	res := make(map[string]models.ReferralRecord, len(rows))
	for _, row := range rows {
		rec, err := row.decode()
		if err != nil {
			log.Error("Failed to decode referral: ", err)
			return nil, err
		}
		res[rec.UserID] = rec
	}
	return res, nil
}

func referralListColumn(level int) (string, error) {
	if level < 1 || level > models.MaxReferralLevel {
		return "", fmt.Errorf("%w: level %d", ErrInvalidChain, level)
	}
	return "referrals_l" + strconv.Itoa(level), nil
}

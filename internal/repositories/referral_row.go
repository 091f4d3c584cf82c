package repositories

import (
	"database/sql"
	"fmt"

	"jetstore/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const referralColumns = "user_id, parent1, parent2, parent3, referrals_l1, referrals_l2, referrals_l3, earned_rub, volume_rub, username, first_name, updated_at"

// referralRow is the raw shape of a referrals row. Lists arrive as Postgres array
// literals and are decoded explicitly so malformed data surfaces as ErrCorruptRecord.
type referralRow struct {
	UserID      string              `db:"user_id"`
	Parent1     sql.NullString      `db:"parent1"`
	Parent2     sql.NullString      `db:"parent2"`
	Parent3     sql.NullString      `db:"parent3"`
	ReferralsL1 []byte              `db:"referrals_l1"`
	ReferralsL2 []byte              `db:"referrals_l2"`
	ReferralsL3 []byte              `db:"referrals_l3"`
	Earned      decimal.NullDecimal `db:"earned_rub"`
	Volume      decimal.NullDecimal `db:"volume_rub"`
	Username    sql.NullString      `db:"username"`
	FirstName   sql.NullString      `db:"first_name"`
	UpdatedAt   sql.NullTime        `db:"updated_at"`
}

func (row referralRow) decode() (models.ReferralRecord, error) {
	rec := models.ReferralRecord{
		UserID:    row.UserID,
		Parent1:   row.Parent1.String,
		Parent2:   row.Parent2.String,
		Parent3:   row.Parent3.String,
		Username:  row.Username.String,
		FirstName: row.FirstName.String,
		UpdatedAt: row.UpdatedAt.Time,
	}

	var err error
	if rec.ReferralsL1, err = decodeList(row.UserID, "referrals_l1", row.ReferralsL1); err != nil {
		return models.ReferralRecord{}, err
	}
	if rec.ReferralsL2, err = decodeList(row.UserID, "referrals_l2", row.ReferralsL2); err != nil {
		return models.ReferralRecord{}, err
	}
	if rec.ReferralsL3, err = decodeList(row.UserID, "referrals_l3", row.ReferralsL3); err != nil {
		return models.ReferralRecord{}, err
	}

	if !row.Earned.Valid || !row.Volume.Valid {
		return models.ReferralRecord{}, fmt.Errorf("%w: referral %s has null earned_rub or volume_rub", ErrCorruptRecord, row.UserID)
	}
	rec.Earned = row.Earned.Decimal
	rec.Volume = row.Volume.Decimal

	if err := rec.ValidateChain(); err != nil {
		return models.ReferralRecord{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return rec, nil
}

func decodeList(userID, column string, raw []byte) ([]string, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: referral %s has null %s", ErrCorruptRecord, userID, column)
	}
	var arr pq.StringArray
	if err := arr.Scan(raw); err != nil {
		return nil, fmt.Errorf("%w: referral %s column %s: %w", ErrCorruptRecord, userID, column, err)
	}
	res := make([]string, 0, len(arr))
	for i, id := range arr {
		if id == "" {
			return nil, fmt.Errorf("%w: referral %s column %s has empty id at %d", ErrCorruptRecord, userID, column, i)
		}
		res = append(res, id)
	}
	return res, nil
}

func encodeList(ids []string) pq.StringArray {
	if ids == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(ids)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

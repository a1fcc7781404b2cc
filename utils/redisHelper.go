package utils

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/refinehaus/clinic_backend/config"
	"gorm.io/gorm"
)

const maxSequenceAttempts = 5

// SequenceKey is the redis counter key for a sequence-numbered table.
func SequenceKey(table string) string {
	return table + "_seq"
}

// GetSequence returns the next sequence_no for table.
//
// With redis the counter is an INCR seeded once from max(sequence_no); a value that already
// exists in the table (counter lost or reset) is skipped. Without redis it is max+1 read on tx.
func GetSequence(ctx context.Context, tx *gorm.DB, table string) (int64, error) {
	cacheKey := SequenceKey(table)

	exists, err := config.RedisCounterExists(ctx, cacheKey)
	if err != nil {
		return 0, err
	}
	if !exists {
		dbSeq, err := maxSequenceNo(ctx, tx, table)
		if err != nil {
			return 0, err
		}
		if err := config.SeedRedisCounter(ctx, cacheKey, dbSeq); err != nil {
			return 0, err
		}
	}

	for attempt := 0; attempt < maxSequenceAttempts; attempt++ {
		seqNo, ok, err := config.GetRedisCounter(ctx, cacheKey)
		if err != nil {
			return 0, err
		}
		if !ok {
			dbSeq, err := maxSequenceNo(ctx, tx, table)
			if err != nil {
				return 0, err
			}
			return dbSeq + 1, nil
		}

		var count int64
		if err := tx.WithContext(ctx).Table(table).Where("sequence_no = ?", seqNo).Count(&count).Error; err != nil {
			return 0, err
		}
		if count == 0 {
			return seqNo, nil
		}
	}
	return 0, fmt.Errorf("could not allocate %s sequence after %d attempts", table, maxSequenceAttempts)
}

func maxSequenceNo(ctx context.Context, tx *gorm.DB, table string) (int64, error) {
	var dbSeq sql.NullInt64
	row := tx.WithContext(ctx).Table(table).Select("max(sequence_no)").Row()
	if err := row.Scan(&dbSeq); err != nil {
		return 0, err
	}
	return dbSeq.Int64, nil
}

// FormatSequence renders prefix-000042 style document numbers.
func FormatSequence(prefix string, seqNo int64) string {
	return fmt.Sprintf("%s-%06d", prefix, seqNo)
}

package models

import (
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/refinehaus/clinic_backend/utils"
)

// ErrDuplicateKey marks a unique-constraint violation, e.g. two bookings racing for the same
// invoice number or a promotion redeemed twice on one invoice.
var ErrDuplicateKey = errors.New("duplicate key")

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// wrapWrite is utils.WrapStorage for inserts; unique violations also match ErrDuplicateKey.
func wrapWrite(op string, err error) error {
	if err != nil && isDuplicateKeyErr(err) {
		return &utils.StorageError{Op: op, Err: errors.Join(ErrDuplicateKey, err)}
	}
	return utils.WrapStorage(op, err)
}

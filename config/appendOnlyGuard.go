package config

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ErrAppendOnly is returned when an UPDATE or DELETE targets a ledger table.
var ErrAppendOnly = errors.New("append-only table")

// appendOnlyTables are written exactly once inside a booking and never changed afterwards.
// Corrections are new rows, not edits.
var appendOnlyTables = map[string]bool{
	"sell_invoice_item":    true,
	"treatment_session":    true,
	"promotion_redemption": true,
	"promotion_line":       true,
	"stock_movement":       true,
}

// AppendOnlyGuardPlugin rejects UPDATE/DELETE statements issued through gorm against ledger tables.
//
// NOTE:
// - This does NOT apply to Raw/Exec SQL. Maintenance scripts must respect the rule themselves.
type AppendOnlyGuardPlugin struct{}

func NewAppendOnlyGuardPlugin() *AppendOnlyGuardPlugin { return &AppendOnlyGuardPlugin{} }

func (p *AppendOnlyGuardPlugin) Name() string { return "append_only_guard" }

func (p *AppendOnlyGuardPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Update().Before("gorm:update").Register("append_only_guard:update", appendOnlyGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("append_only_guard:delete", appendOnlyGuardCallback); err != nil {
		return err
	}
	return nil
}

func appendOnlyGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	table := db.Statement.Table
	if table == "" && db.Statement.Schema != nil {
		table = db.Statement.Schema.Table
	}
	if IsAppendOnlyTable(table) {
		_ = db.AddError(fmt.Errorf("%w: %s", ErrAppendOnly, table))
	}
}

func IsAppendOnlyTable(table string) bool {
	return appendOnlyTables[strings.ToLower(strings.TrimSpace(table))]
}

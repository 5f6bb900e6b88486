package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/petfriendlyvet/ledger_backend/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NumberSeries is the dedicated allocator behind every sequential document
// number (entry_number, bill_number, ...). One row per sequence; NextValue is
// bumped under a row lock inside the caller's transaction, so numbers are
// gapless per committed document and never derived from row counts.
type NumberSeries struct {
	ID        int          `gorm:"primary_key" json:"id"`
	Module    NumberModule `gorm:"size:50;uniqueIndex;not null" json:"module"`
	Prefix    string       `gorm:"size:10;not null" json:"prefix"`
	NextValue int64        `gorm:"not null;default:1" json:"next_value"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

var defaultSeries = []NumberSeries{
	{Module: NumberModuleJournal, Prefix: "JE"},
	{Module: NumberModuleBill, Prefix: "BILL"},
	{Module: NumberModuleBillPayment, Prefix: "BP"},
	{Module: NumberModuleInvoice, Prefix: "INV"},
	{Module: NumberModuleInvoicePayment, Prefix: "RCP"},
	{Module: NumberModulePurchaseOrder, Prefix: "PO"},
}

// EnsureNumberSeries seeds missing series rows. Safe to run repeatedly.
func EnsureNumberSeries(db *gorm.DB) error {
	for _, s := range defaultSeries {
		row := s
		err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// NextNumber allocates the next number for module inside tx. The SELECT ...
// FOR UPDATE serializes concurrent allocators on the series row only; if the
// surrounding transaction rolls back, the increment rolls back with it.
func NextNumber(tx *gorm.DB, module NumberModule) (string, int64, error) {
	var series NumberSeries
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("module = ?", module).
		First(&series).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", 0, fmt.Errorf("number series %q not seeded", module)
		}
		return "", 0, err
	}

	seq := series.NextValue
	if err := tx.Model(&NumberSeries{}).
		Where("id = ?", series.ID).
		Update("next_value", gorm.Expr("next_value + 1")).Error; err != nil {
		return "", 0, err
	}

	prefix, err := seriesPrefix(series)
	if err != nil {
		return "", 0, err
	}
	return fmt.Sprintf("%s-%06d", prefix, seq), seq, nil
}

// seriesPrefix reads the prefix through a small redis cache. Redis being
// down just means a prefix read per allocation; the allocator itself is
// always the DB row.
func seriesPrefix(series NumberSeries) (string, error) {
	redisKey := "numberPrefix:" + string(series.Module)
	var cached string
	exists, err := config.GetRedisObject(redisKey, &cached)
	if err == nil && exists && cached != "" {
		return cached, nil
	}
	if err := config.SetRedisObject(redisKey, series.Prefix, 0); err != nil {
		return series.Prefix, nil
	}
	return series.Prefix, nil
}

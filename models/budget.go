package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Budget plans one account for one calendar year, month by month. One row per
// (account, year).
type Budget struct {
	ID        int `gorm:"primary_key" json:"id"`
	AccountId int `gorm:"not null;uniqueIndex:idx_budget_account_year" json:"account_id"`
	Year      int `gorm:"not null;uniqueIndex:idx_budget_account_year" json:"year"`

	Jan decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"jan"`
	Feb decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"feb"`
	Mar decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"mar"`
	Apr decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"apr"`
	May decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"may"`
	Jun decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"jun"`
	Jul decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"jul"`
	Aug decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"aug"`
	Sep decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"sep"`
	Oct decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"oct"`
	Nov decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"nov"`
	Dec decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"dec"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b *Budget) GetId() int {
	return b.ID
}

// MonthAmount returns the planned amount for a 1-based month.
func (b *Budget) MonthAmount(month time.Month) decimal.Decimal {
	switch month {
	case time.January:
		return b.Jan
	case time.February:
		return b.Feb
	case time.March:
		return b.Mar
	case time.April:
		return b.Apr
	case time.May:
		return b.May
	case time.June:
		return b.Jun
	case time.July:
		return b.Jul
	case time.August:
		return b.Aug
	case time.September:
		return b.Sep
	case time.October:
		return b.Oct
	case time.November:
		return b.Nov
	case time.December:
		return b.Dec
	}
	return decimal.Zero
}

// AnnualTotal sums all twelve months.
func (b *Budget) AnnualTotal() decimal.Decimal {
	total := decimal.Zero
	for m := time.January; m <= time.December; m++ {
		total = total.Add(b.MonthAmount(m))
	}
	return total
}

type NewBudget struct {
	AccountId int               `json:"account_id" binding:"required"`
	Year      int               `json:"year" binding:"required"`
	Months    []decimal.Decimal `json:"months" binding:"required"`
}

func (input *NewBudget) validate(ctx context.Context) error {
	if len(input.Months) != 12 {
		return errors.New("budget requires exactly twelve monthly amounts")
	}
	for i, m := range input.Months {
		if m.IsNegative() || !m.Equal(m.Round(2)) {
			return fmt.Errorf("month %d: amount must be non-negative with at most two decimal places", i+1)
		}
	}
	if input.Year < 2000 || input.Year > 2100 {
		return errors.New("invalid budget year")
	}
	if _, err := GetAccount(ctx, input.AccountId); err != nil {
		return errors.New("account not found")
	}
	return nil
}

func (input *NewBudget) toRow() Budget {
	return Budget{
		AccountId: input.AccountId,
		Year:      input.Year,
		Jan:       input.Months[0], Feb: input.Months[1], Mar: input.Months[2],
		Apr: input.Months[3], May: input.Months[4], Jun: input.Months[5],
		Jul: input.Months[6], Aug: input.Months[7], Sep: input.Months[8],
		Oct: input.Months[9], Nov: input.Months[10], Dec: input.Months[11],
	}
}

// UpsertBudget creates or replaces the plan for (account, year).
func UpsertBudget(ctx context.Context, input *NewBudget) (*Budget, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	row := input.toRow()
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Budget
		err := tx.Where("account_id = ? AND year = ?", input.AccountId, input.Year).First(&existing).Error
		if err == nil {
			row.ID = existing.ID
			return tx.Save(&row).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&row).Error
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func GetBudget(ctx context.Context, accountId, year int) (*Budget, error) {
	var budget Budget
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("account_id = ? AND year = ?", accountId, year).
		First(&budget).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &budget, nil
}

func GetBudgetsForYear(ctx context.Context, year int) ([]*Budget, error) {
	var budgets []*Budget
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("year = ?", year).Find(&budgets).Error; err != nil {
		return nil, err
	}
	return budgets, nil
}

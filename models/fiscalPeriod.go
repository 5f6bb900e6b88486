package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"gorm.io/gorm"
)

// FiscalYear owns its accounting periods. There is no "is_current" flag
// anywhere: the period a posting belongs to is always resolved from the
// posting date, so two periods can never both claim to be current.
type FiscalYear struct {
	ID        int                `gorm:"primary_key" json:"id"`
	Name      string             `gorm:"size:50;uniqueIndex;not null" json:"name"`
	StartDate time.Time          `gorm:"not null" json:"start_date"`
	EndDate   time.Time          `gorm:"not null" json:"end_date"`
	Status    PeriodStatus       `gorm:"size:20;not null;default:'open'" json:"status"`
	Periods   []AccountingPeriod `gorm:"foreignKey:FiscalYearId" json:"periods"`
	CreatedAt time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type AccountingPeriod struct {
	ID           int          `gorm:"primary_key" json:"id"`
	FiscalYearId int          `gorm:"index;not null" json:"fiscal_year_id"`
	Name         string       `gorm:"size:20;uniqueIndex;not null" json:"name"` // "2026-01"
	StartDate    time.Time    `gorm:"not null;index" json:"start_date"`
	EndDate      time.Time    `gorm:"not null;index" json:"end_date"`
	Status       PeriodStatus `gorm:"size:20;not null;default:'open'" json:"status"`
	// ClosingEntryId links the entry ClosePeriod posted; used to make close
	// idempotent and retryable.
	ClosingEntryId *int       `json:"closing_entry_id"`
	ClosedAt       *time.Time `json:"closed_at"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFiscalYear struct {
	Name      string    `json:"name" binding:"required"`
	StartDate time.Time `json:"start_date" binding:"required"`
}

// CreateFiscalYear creates the year plus its twelve monthly periods.
func CreateFiscalYear(ctx context.Context, input *NewFiscalYear) (*FiscalYear, error) {
	if err := utils.ValidateUnique[FiscalYear](ctx, "name", input.Name, 0); err != nil {
		return nil, err
	}

	start := utils.StartOfDay(input.StartDate)
	if start.Day() != 1 {
		return nil, errors.New("fiscal year must start on the first day of a month")
	}
	end := start.AddDate(1, 0, -1)

	year := FiscalYear{
		Name:      input.Name,
		StartDate: start,
		EndDate:   end,
		Status:    PeriodStatusOpen,
	}
	for m := 0; m < 12; m++ {
		pStart := start.AddDate(0, m, 0)
		pEnd := pStart.AddDate(0, 1, -1)
		year.Periods = append(year.Periods, AccountingPeriod{
			Name:      pStart.Format("2006-01"),
			StartDate: pStart,
			EndDate:   pEnd,
			Status:    PeriodStatusOpen,
		})
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&year).Error; err != nil {
		return nil, err
	}
	return &year, nil
}

func GetPeriod(ctx context.Context, id int) (*AccountingPeriod, error) {
	var period AccountingPeriod
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", id).First(&period).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &period, nil
}

// FindPeriodForDate resolves the period containing date, using tx so the
// posting path and the close path see a consistent row.
func FindPeriodForDate(tx *gorm.DB, date time.Time) (*AccountingPeriod, error) {
	var period AccountingPeriod
	day := utils.StartOfDay(date)
	err := tx.Where("start_date <= ? AND end_date >= ?", day, day).First(&period).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no accounting period covers %s", day.Format("2006-01-02"))
		}
		return nil, err
	}
	return &period, nil
}

// ValidatePostingPeriod is the posting gate: any entry dated in a period that
// is not open is rejected with PeriodClosedError. The gate flips the moment a
// close begins (status closing), before the closing entry is computed.
func ValidatePostingPeriod(tx *gorm.DB, date time.Time) (*AccountingPeriod, error) {
	period, err := FindPeriodForDate(tx, date)
	if err != nil {
		return nil, err
	}
	if period.Status != PeriodStatusOpen {
		return nil, &PeriodClosedError{Date: date, Period: period.Name, Status: period.Status}
	}
	return period, nil
}

// TransitionPeriod enforces monotonic status movement. Any attempt to move
// backwards is an integrity error; reopening goes through
// ReopenPeriodAdministratively only.
func TransitionPeriod(tx *gorm.DB, periodId int, to PeriodStatus) error {
	var period AccountingPeriod
	if err := tx.Where("id = ?", periodId).First(&period).Error; err != nil {
		return err
	}
	if to.rank() < 0 {
		return fmt.Errorf("unknown period status %q", to)
	}
	if to.rank() < period.Status.rank() {
		return &IntegrityError{
			Op:     "TransitionPeriod",
			Detail: fmt.Sprintf("period %s cannot move %s -> %s", period.Name, period.Status, to),
		}
	}
	if to == period.Status {
		return nil
	}
	updates := map[string]interface{}{"status": to}
	if to == PeriodStatusClosed {
		now := time.Now().UTC()
		updates["closed_at"] = &now
	}
	return tx.Model(&AccountingPeriod{}).Where("id = ?", periodId).Updates(updates).Error
}

// LockPeriod is closed -> locked. Locking an open period is rejected; close
// it first so the closing entry exists.
func LockPeriod(ctx context.Context, periodId int) error {
	period, err := GetPeriod(ctx, periodId)
	if err != nil {
		return err
	}
	if period.Status != PeriodStatusClosed {
		return &IntegrityError{
			Op:     "LockPeriod",
			Detail: fmt.Sprintf("period %s is %s; only closed periods can be locked", period.Name, period.Status),
		}
	}
	db := config.GetDB()
	return TransitionPeriod(db.WithContext(ctx), periodId, PeriodStatusLocked)
}

// ReopenPeriodAdministratively is the explicit superseding action outside the
// normal flow. It requires an admin caller, refuses locked periods, clears
// the closing linkage (the closing entry itself is voided by the caller),
// and logs loudly.
func ReopenPeriodAdministratively(ctx context.Context, periodId int, reason string) error {
	isAdmin, _ := utils.GetIsAdminFromContext(ctx)
	if !isAdmin {
		return &IntegrityError{Op: "ReopenPeriodAdministratively", Detail: "admin caller required"}
	}
	period, err := GetPeriod(ctx, periodId)
	if err != nil {
		return err
	}
	if period.Status == PeriodStatusLocked {
		return &IntegrityError{
			Op:     "ReopenPeriodAdministratively",
			Detail: fmt.Sprintf("period %s is locked and cannot be reopened", period.Name),
		}
	}
	if period.Status == PeriodStatusOpen {
		return nil
	}

	userName, _ := utils.GetUserNameFromContext(ctx)
	config.GetLogger().WithField("period", period.Name).
		WithField("reason", reason).
		WithField("user", userName).
		Warn("accounting period reopened administratively")

	db := config.GetDB()
	return db.WithContext(ctx).Model(&AccountingPeriod{}).Where("id = ?", periodId).
		Updates(map[string]interface{}{
			"status":           PeriodStatusOpen,
			"closing_entry_id": nil,
			"closed_at":        nil,
		}).Error
}

package models

import (
	"context"
	"errors"
	"time"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Account is one node in the chart of accounts. Balance is a cache over
// posted journal lines (signed per the account's normal side) and must equal
// the recomputed sum at BalanceAsOf at all times; workflow.UpdateAccountBalances
// is the only writer.
type Account struct {
	ID            int           `gorm:"primary_key" json:"id"`
	Code          string        `gorm:"size:20;uniqueIndex;not null" json:"code" binding:"required"`
	Name          string        `gorm:"size:200;not null" json:"name" binding:"required"`
	AccountType   AccountType   `gorm:"type:enum('asset','liability','equity','revenue','expense');size:20;not null;index" json:"account_type" binding:"required"`
	NormalBalance NormalBalance `gorm:"size:16;not null" json:"normal_balance"`
	ParentId      int           `gorm:"index" json:"parent_id"`
	Description   string        `gorm:"type:text" json:"description"`

	IsBank *bool `gorm:"not null;default:false" json:"is_bank"`
	IsAR   *bool `gorm:"not null;default:false" json:"is_ar"`
	IsAP   *bool `gorm:"not null;default:false" json:"is_ap"`

	Balance     decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"balance"`
	BalanceAsOf *time.Time      `json:"balance_as_of"`
	IsActive    *bool           `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *Account) GetId() int {
	return a.ID
}

type NewAccount struct {
	Code        string      `json:"code" binding:"required"`
	Name        string      `json:"name" binding:"required"`
	AccountType AccountType `json:"account_type" binding:"required"`
	ParentId    int         `json:"parent_id"`
	Description string      `json:"description"`
	IsBank      bool        `json:"is_bank"`
	IsAR        bool        `json:"is_ar"`
	IsAP        bool        `json:"is_ap"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewAccount) validate(ctx context.Context, id int) error {
	if !input.AccountType.IsValid() {
		return errors.New("invalid account type")
	}
	if err := utils.ValidateUnique[Account](ctx, "code", input.Code, id); err != nil {
		if errors.Is(err, utils.ErrorDuplicateValue) {
			return &DuplicateCodeError{Code: input.Code}
		}
		return err
	}
	if input.ParentId > 0 {
		if id > 0 && id == input.ParentId {
			return errors.New("self-parent not allowed")
		}
		parent, err := GetAccount(ctx, input.ParentId)
		if err != nil {
			return errors.New("parent account not found")
		}
		if parent.AccountType != input.AccountType {
			return errors.New("parent account must have the same account type")
		}
	}
	return nil
}

func CreateAccount(ctx context.Context, input *NewAccount) (*Account, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	account := Account{
		Code:          input.Code,
		Name:          input.Name,
		AccountType:   input.AccountType,
		NormalBalance: NormalBalanceFor(input.AccountType),
		ParentId:      input.ParentId,
		Description:   input.Description,
		IsBank:        &input.IsBank,
		IsAR:          &input.IsAR,
		IsAP:          &input.IsAP,
		Balance:       decimal.Zero,
		IsActive:      utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

type UpdateAccountInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ParentId    *int    `json:"parent_id"`
}

// UpdateAccount edits descriptive fields only. Code and type are fixed at
// creation; changing them would reclassify history already posted against
// the account.
func UpdateAccount(ctx context.Context, id int, input *UpdateAccountInput) (*Account, error) {
	account, err := GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.ParentId != nil {
		if *input.ParentId == id {
			return nil, errors.New("self-parent not allowed")
		}
		if *input.ParentId > 0 {
			parent, err := GetAccount(ctx, *input.ParentId)
			if err != nil {
				return nil, errors.New("parent account not found")
			}
			if parent.AccountType != account.AccountType {
				return nil, errors.New("parent account must have the same account type")
			}
		}
		updates["parent_id"] = *input.ParentId
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&Account{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	return GetAccount(ctx, id)
}

// DeactivateAccount soft-deletes: the account stays for history but rejects
// new postings. Accounts are never hard-deleted.
func DeactivateAccount(ctx context.Context, id int) error {
	if err := utils.ValidateResourceId[Account](ctx, id); err != nil {
		return err
	}
	db := config.GetDB()
	return db.WithContext(ctx).Model(&Account{}).Where("id = ?", id).
		Update("is_active", false).Error
}

func GetAccount(ctx context.Context, id int) (*Account, error) {
	var account Account
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &account, nil
}

func GetAccountByCode(ctx context.Context, code string) (*Account, error) {
	var account Account
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("code = ?", code).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetAccounts returns the chart ordered by code (codes sort the tree).
func GetAccounts(ctx context.Context, activeOnly bool) ([]*Account, error) {
	var accounts []*Account
	db := config.GetDB().WithContext(ctx).Order("code")
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	if err := db.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// GetAccountBalance returns the as-of balance computed from posted journal
// lines, signed per the account's normal side. It deliberately bypasses the
// cache; callers wanting the cache read Account.Balance.
//
// Voided entries stay in the sum: a void never edits the original, it posts
// a reversing entry, so excluding either side would double-count the other.
func GetAccountBalance(ctx context.Context, accountId int, asOf time.Time) (decimal.Decimal, error) {
	account, err := GetAccount(ctx, accountId)
	if err != nil {
		return decimal.Zero, err
	}
	db := config.GetDB()
	return accountBalanceTx(db.WithContext(ctx), account, asOf)
}

func accountBalanceTx(tx *gorm.DB, account *Account, asOf time.Time) (decimal.Decimal, error) {
	type sums struct {
		Debit  decimal.Decimal
		Credit decimal.Decimal
	}
	var s sums
	err := tx.Model(&JournalLine{}).
		Select("COALESCE(SUM(journal_lines.debit),0) AS debit, COALESCE(SUM(journal_lines.credit),0) AS credit").
		Joins("JOIN journal_entries ON journal_entries.id = journal_lines.entry_id").
		Where("journal_lines.account_id = ?", account.ID).
		Where("journal_entries.status IN ?", []EntryStatus{EntryStatusPosted, EntryStatusVoided}).
		Where("journal_entries.entry_date <= ?", utils.EndOfDay(asOf)).
		Scan(&s).Error
	if err != nil {
		return decimal.Zero, err
	}
	return SignedBalance(account.NormalBalance, s.Debit, s.Credit), nil
}

// SignedBalance folds raw debit/credit totals into one number on the
// account's normal side: debit-normal accounts grow with debits,
// credit-normal accounts grow with credits.
func SignedBalance(normal NormalBalance, debit, credit decimal.Decimal) decimal.Decimal {
	if normal == NormalBalanceDebit {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// GetRolledUpBalance sums an account and all its descendants. Computed on
// read over the in-memory tree; caching it recursively would fan every
// posting out to all ancestors.
func GetRolledUpBalance(ctx context.Context, accountId int, asOf time.Time) (decimal.Decimal, error) {
	accounts, err := GetAccounts(ctx, false)
	if err != nil {
		return decimal.Zero, err
	}
	children := make(map[int][]int, len(accounts))
	for _, a := range accounts {
		if a.ParentId > 0 {
			children[a.ParentId] = append(children[a.ParentId], a.ID)
		}
	}

	total := decimal.Zero
	stack := []int{accountId}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		balance, err := GetAccountBalance(ctx, id, asOf)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(balance)
		stack = append(stack, children[id]...)
	}
	return total, nil
}

package workflow

import (
	"errors"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/petfriendlyvet/ledger_backend/models"
	"gorm.io/gorm"
)

var ErrIdempotencyInProgress = errors.New("idempotency in progress")

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// BeginIdempotency inserts STARTED for key. If SUCCEEDED already exists it
// returns the recorded entry id so the caller can hand back the original
// result without re-posting.
func BeginIdempotency(tx *gorm.DB, key string) (doneEntryId int, err error) {
	row := models.IdempotencyKey{
		Key:    key,
		Status: models.IdempotencyStatusStarted,
	}
	if err := tx.Create(&row).Error; err == nil {
		return 0, nil
	} else if !isDuplicateKeyErr(err) {
		return 0, err
	}

	var existing models.IdempotencyKey
	if err := tx.Where("`key` = ?", key).First(&existing).Error; err != nil {
		return 0, err
	}

	switch existing.Status {
	case models.IdempotencyStatusSucceeded:
		if existing.EntryId != nil {
			return *existing.EntryId, nil
		}
		return 0, nil
	case models.IdempotencyStatusStarted:
		// Another worker may still be processing; ask the producer to retry.
		// A stale row means that attempt died, so reclaim it.
		if time.Since(existing.UpdatedAt) < 5*time.Minute {
			return 0, ErrIdempotencyInProgress
		}
		fallthrough
	default:
		return 0, tx.Model(&models.IdempotencyKey{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": ""}).Error
	}
}

func MarkIdempotencySucceeded(tx *gorm.DB, key string, entryId int) error {
	return tx.Model(&models.IdempotencyKey{}).
		Where("`key` = ?", key).
		Updates(map[string]interface{}{
			"status":     models.IdempotencyStatusSucceeded,
			"entry_id":   entryId,
			"last_error": "",
		}).Error
}

func MarkIdempotencyFailed(tx *gorm.DB, key string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
		if len(msg) > 500 {
			msg = msg[:500]
		}
	}
	return tx.Model(&models.IdempotencyKey{}).
		Where("`key` = ?", key).
		Updates(map[string]interface{}{
			"status":     models.IdempotencyStatusFailed,
			"last_error": msg,
		}).Error
}

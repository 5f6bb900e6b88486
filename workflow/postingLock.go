package workflow

import (
	"fmt"
	"sort"

	"gorm.io/gorm"
)

// AcquirePostingLocks serializes posting per account across instances using
// MySQL advisory locks. Accounts are locked in ascending id order so two
// entries touching overlapping account sets cannot deadlock.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB that will run the posting transaction.
func AcquirePostingLocks(tx *gorm.DB, accountIds []int) error {
	ids := append([]int(nil), accountIds...)
	sort.Ints(ids)
	acquired := make([]int, 0, len(ids))
	prev := 0
	for _, id := range ids {
		if id == prev {
			continue
		}
		prev = id
		lockName := fmt.Sprintf("posting:account:%d", id)
		var ok int
		if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
			ReleasePostingLocks(tx, acquired)
			return err
		}
		if ok != 1 {
			ReleasePostingLocks(tx, acquired)
			return fmt.Errorf("could not acquire posting lock for account_id=%d", id)
		}
		acquired = append(acquired, id)
	}
	return nil
}

func ReleasePostingLocks(tx *gorm.DB, accountIds []int) {
	for _, id := range accountIds {
		lockName := fmt.Sprintf("posting:account:%d", id)
		var _ok int
		_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
	}
}

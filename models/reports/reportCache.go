package reports

import (
	"fmt"
	"time"

	"github.com/petfriendlyvet/ledger_backend/config"
)

const reportCacheTTL = 5 * time.Minute

// cachedReport reads a report through redis. Reports over closed history are
// stable, so a short TTL only ever delays the current period's numbers, and a
// cold or absent redis just means recomputing.
func cachedReport[T any](cacheKey string, compute func() (*T, error)) (*T, error) {
	var cached T
	if found, err := config.GetRedisObject(cacheKey, &cached); err == nil && found {
		return &cached, nil
	}

	result, err := compute()
	if err != nil {
		return nil, err
	}
	_ = config.SetRedisObject(cacheKey, result, reportCacheTTL)
	return result, nil
}

func reportCacheKey(report string, parts ...interface{}) string {
	key := "report:" + report
	for _, part := range parts {
		key += fmt.Sprintf(":%v", part)
	}
	return key
}

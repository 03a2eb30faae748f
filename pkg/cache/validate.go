package cache

import (
	"fmt"

	"github.com/Combine-Capital/kvcache/pkg/errors"
)

// okStatus is the store's canonical success acknowledgement.
const okStatus = "OK"

// The check helpers are the only place validated operations turn a negative
// acknowledgement into an error signal.

func checkWritten(status, key string, value []byte) error {
	if status != okStatus {
		return errors.Internal(errors.KindCacheWrite, source,
			fmt.Sprintf("Cache Set error: %s %s", key, value))
	}
	return nil
}

func checkDeleted(removed int64, key string) error {
	if removed == 0 {
		return errors.Internal(errors.KindCacheDelete, source,
			fmt.Sprintf("Cache key: %s not deleted", key))
	}
	return nil
}

func checkExpirySet(applied bool, key string) error {
	if !applied {
		return errors.Internal(errors.KindCacheExpiry, source,
			fmt.Sprintf("Set expire error key: %s", key))
	}
	return nil
}

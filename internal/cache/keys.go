package cache

import "fmt"

// ReplyKey is the cache key for a normalized inference reply of a catalog
// target. Upload-sourced analyses have no stable key and are never cached.
func ReplyKey(ticID string) string {
	return fmt.Sprintf("infer:reply:%s", ticID)
}

package utils

import (
	"crypto/md5"
	"fmt"
)

// HashString derives a stable hex id from arbitrary text. Used for
// document ids and match cache keys; not a security boundary.
func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}

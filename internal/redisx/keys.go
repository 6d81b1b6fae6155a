package redisx

import (
	"fmt"
	"time"
)

const (
	// Submit lock per session: submit:lock:{session_key} -> token
	KeySubmitLock = "submit:lock:%s"
)

var (
	TTLSubmitLock = 30 * time.Second
)

// SubmitLockKey returns the lock key for sessionKey.
func SubmitLockKey(sessionKey string) string {
	return fmt.Sprintf(KeySubmitLock, sessionKey)
}

package models

import "strings"

// Key scopes for limiter buckets.
const (
	ScopeIdentity = "id"
	ScopeIP       = "ip"
)

// BucketKey builds "<scope>:<subject>" with surrounding space removed.
func BucketKey(scope, subject string) string {
	return scope + ":" + strings.TrimSpace(subject)
}

package constants

import (
	"fmt"
	"time"
)

// Redis cache keys and TTLs.
// Pattern: issuetrack:{module}:{operation}:{identifier}:{params?}

const (
	CACHE_PREFIX = "issuetrack"
)

// ================== ISSUES MODULE ==================

const (
	CACHE_KEY_ISSUES_LIST   = CACHE_PREFIX + ":issues:list"         // + :status:X:priority:Y:role:Z
	CACHE_KEY_ISSUE_DETAIL  = CACHE_PREFIX + ":issues:detail:uuid:" // + issue-id
	PATTERN_INVALIDATE_LIST = CACHE_KEY_ISSUES_LIST + ":*"
)

const (
	TTL_ISSUE_LIST   = 2 * time.Minute
	TTL_ISSUE_DETAIL = 10 * time.Minute
)

// ================== HELPER FUNCTIONS ==================

// BuildIssueListKey -> "issuetrack:issues:list:status:OPEN:priority:any:role:any"
func BuildIssueListKey(status, priority, role string) string {
	return fmt.Sprintf("%s:status:%s:priority:%s:role:%s",
		CACHE_KEY_ISSUES_LIST, orAny(status), orAny(priority), orAny(role))
}

func BuildIssueDetailKey(issueID string) string {
	return CACHE_KEY_ISSUE_DETAIL + issueID
}

func orAny(v string) string {
	if v == "" {
		return "any"
	}
	return v
}

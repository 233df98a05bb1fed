package utils

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/nyaruka/phonenumbers"
)

// emailPattern is the local@domain.tld shape the browser forms accept. It is
// not an RFC 5322 validator.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	noticePolicyOnce sync.Once
	noticePolicyObj  *bluemonday.Policy
)

// NormalizeString trims whitespace and normalizes string input
func NormalizeString(s string) string {
	return strings.TrimSpace(s)
}

// IsValidEmail performs basic email validation
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// CharCount counts code points, not bytes.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}

// SafeNoticeHTML passes generated notice markup through an allowlist that
// keeps only the table layout. Values inside must already be escaped.
func SafeNoticeHTML(s string) string {
	return noticePolicy().Sanitize(s)
}

func noticePolicy() *bluemonday.Policy {
	noticePolicyOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowElements("table", "tr", "th", "td", "br")
		p.AllowAttrs("align").Matching(regexp.MustCompile(`^(left|right|center)$`)).OnElements("th", "td")
		noticePolicyObj = p
	})
	return noticePolicyObj
}

// NormalizePhone formats a valid number in the national format of region,
// e.g. "(555) 010-4477" for US. Input that does not parse as a valid number
// comes back trimmed but otherwise as typed.
func NormalizePhone(phone, region string) string {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return ""
	}
	num, err := phonenumbers.Parse(trimmed, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return trimmed
	}
	if phonenumbers.GetRegionCodeForNumber(num) != region {
		return phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
	}
	return phonenumbers.Format(num, phonenumbers.NATIONAL)
}

package passwordx

import (
	"fmt"
	"strings"
)

// specialChars is the fixed set satisfying the special-character rule.
const specialChars = `!@#$%^&*(),.?":{}|<>`

// sequences checked for 3+ character runs (forward or reversed).
var sequences = []string{
	"abcdefghijklmnopqrstuvwxyz",
	"0123456789",
	"qwertyuiop",
	"asdfghjkl",
	"zxcvbnm",
}

// commonPasswords is a small static dictionary of passwords rejected outright.
var commonPasswords = map[string]struct{}{
	"password": {}, "password123": {}, "123456": {}, "12345678": {},
	"qwerty": {}, "abc123": {}, "monkey": {}, "master": {}, "dragon": {},
	"letmein": {}, "login": {}, "admin": {}, "welcome": {}, "solo": {},
	"princess": {}, "starwars": {}, "passw0rd": {}, "p@ssword": {},
	"p@ssw0rd": {},
}

// Strength labels, keyed by score thresholds in Strength.
const (
	LabelStrong = "Strong"
	LabelGood   = "Good"
	LabelFair   = "Fair"
	LabelWeak   = "Weak"
)

// Policy holds the configurable password rules. All predicates default on.
type Policy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireDigit     bool
	RequireSpecial   bool
}

// DefaultPolicy returns the policy with every rule enabled and an 8-character
// minimum.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireDigit:     true,
		RequireSpecial:   true,
	}
}

// Validate checks password against the policy and returns every violated
// rule, not just the first. username may be empty; when present the password
// must not contain it. An empty slice means the password is acceptable.
func (p Policy) Validate(password, username string) []string {
	var violations []string

	if len(password) < p.MinLength {
		violations = append(violations,
			fmt.Sprintf("Password must be at least %d characters", p.MinLength))
	}
	if p.RequireUppercase && !strings.ContainsAny(password, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		violations = append(violations, "Password must contain at least one uppercase letter")
	}
	if p.RequireLowercase && !strings.ContainsAny(password, "abcdefghijklmnopqrstuvwxyz") {
		violations = append(violations, "Password must contain at least one lowercase letter")
	}
	if p.RequireDigit && !strings.ContainsAny(password, "0123456789") {
		violations = append(violations, "Password must contain at least one digit")
	}
	if p.RequireSpecial && !strings.ContainsAny(password, specialChars) {
		violations = append(violations, "Password must contain at least one special character (!@#$%^&*)")
	}
	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		violations = append(violations, "This password is too common. Please choose a stronger password")
	}
	if username != "" && strings.Contains(strings.ToLower(password), strings.ToLower(username)) {
		violations = append(violations, "Password cannot contain your username")
	}
	if hasSequentialRun(password) {
		violations = append(violations, "Password cannot contain sequential characters (abc, 123)")
	}

	return violations
}

// hasSequentialRun reports whether the password contains a 3-character run
// (or its reverse) from any of the known sequences.
func hasSequentialRun(password string) bool {
	const runLength = 3

	lower := strings.ToLower(password)
	for _, seq := range sequences {
		for i := 0; i+runLength <= len(seq); i++ {
			run := seq[i : i+runLength]
			if strings.Contains(lower, run) {
				return true
			}
			if strings.Contains(lower, reverse(run)) {
				return true
			}
		}
	}
	return false
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// Strength scores a password 0-100 with a coarse label. The score is advisory
// UI feedback only; acceptance is decided solely by Validate.
func (p Policy) Strength(password string) (int, string) {
	score := 0

	length := len(password)
	if length >= 8 {
		score += 20
	}
	if length >= 12 {
		score += 15
	}
	if length >= 16 {
		score += 10
	}

	hasLower := strings.ContainsAny(password, "abcdefghijklmnopqrstuvwxyz")
	hasUpper := strings.ContainsAny(password, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	hasDigit := strings.ContainsAny(password, "0123456789")
	hasSpecial := strings.ContainsAny(password, specialChars)

	if hasLower {
		score += 10
	}
	if hasUpper {
		score += 15
	}
	if hasDigit {
		score += 15
	}
	if hasSpecial {
		score += 15
	}

	classes := 0
	for _, present := range []bool{hasLower, hasUpper, hasDigit, hasSpecial} {
		if present {
			classes++
		}
	}
	if classes >= 3 {
		score += 10
	}
	if classes == 4 {
		score += 10
	}

	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		score = min(score, 10)
	}
	score = min(score, 100)

	switch {
	case score >= 80:
		return score, LabelStrong
	case score >= 60:
		return score, LabelGood
	case score >= 40:
		return score, LabelFair
	default:
		return score, LabelWeak
	}
}

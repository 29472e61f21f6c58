package passwordx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateReturnsAllViolations(t *testing.T) {
	policy := DefaultPolicy()

	// "abc" misses length, uppercase, digit, special AND is a sequential run,
	// but every violated rule must be reported together.
	violations := policy.Validate("abc", "")
	require.Len(t, violations, 5)
}

func TestValidateAccepts(t *testing.T) {
	policy := DefaultPolicy()

	tests := []string{
		"Tr!ckyP4ss",
		"V@lid8&Sound",
		"N0t.Seq#Word",
	}
	for _, pw := range tests {
		t.Run(pw, func(t *testing.T) {
			require.Empty(t, policy.Validate(pw, "STU042"))
		})
	}
}

func TestValidateRules(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name     string
		password string
		username string
		want     string
	}{
		{"too short", "Ab1!", "", "at least 8 characters"},
		{"no uppercase", "lowercase1!", "", "uppercase letter"},
		{"no lowercase", "UPPERCASE1!", "", "lowercase letter"},
		{"no digit", "NoDigits!!", "", "at least one digit"},
		{"no special", "NoSpecial11", "", "special character"},
		{"common password", "P@ssw0rd", "", "too common"},
		{"contains username", "xSTU010!9z", "stu010", "cannot contain your username"},
		{"alphabet run", "Whk!mno4X", "", "sequential characters"},
		{"digit run", "Wq!d456Xp", "", "sequential characters"},
		{"keyboard row run", "W!9sdfKpm", "", "sequential characters"},
		{"reversed run", "W!9cbaKpm", "", "sequential characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := policy.Validate(tt.password, tt.username)
			require.NotEmpty(t, violations)

			found := false
			for _, v := range violations {
				if strings.Contains(v, tt.want) {
					found = true
					break
				}
			}
			require.True(t, found, "expected a violation mentioning %q, got %v", tt.want, violations)
		})
	}
}

func TestConfigurablePredicates(t *testing.T) {
	policy := Policy{MinLength: 4}

	// With every predicate disabled only length and the static heuristics apply.
	require.Empty(t, policy.Validate("wmhk", ""))
	require.NotEmpty(t, policy.Validate("ab", ""))
}

func TestStrength(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name      string
		password  string
		wantLabel string
	}{
		{"strong mixed long", "Tr!ckyP4ssw*rdXQ", LabelStrong},
		{"fair lowercase only long", "wmhkrtplvnqe", LabelFair},
		{"weak short", "wmhk", LabelWeak},
		{"common clamped to weak", "P@ssw0rd", LabelWeak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, label := policy.Strength(tt.password)
			require.Equal(t, tt.wantLabel, label)
			require.GreaterOrEqual(t, score, 0)
			require.LessOrEqual(t, score, 100)
		})
	}
}

func TestStrengthCommonPasswordClamp(t *testing.T) {
	policy := DefaultPolicy()

	score, _ := policy.Strength("P@ssw0rd")
	require.LessOrEqual(t, score, 10)
}

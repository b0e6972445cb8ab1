package password

import (
	"strconv"
	"strings"
)

type charClasses struct {
	lower  bool
	upper  bool
	digit  bool
	symbol bool
}

func classifyRunes(s string) charClasses {
	var c charClasses
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			c.lower = true
		case r >= 'A' && r <= 'Z':
			c.upper = true
		case r >= '0' && r <= '9':
			c.digit = true
		default:
			c.symbol = true
		}
	}
	return c
}

// commonSequences are lowercase substrings that mark a password as
// predictable: keyboard rows, numeric runs, and dictionary staples.
var commonSequences = []string{
	"123456", "12345", "1234", "123",
	"abcdef", "abcde", "abcd", "abc",
	"qwerty", "qwert", "qwe",
	"asdf", "asd",
	"zxcv", "zxc",
	"password", "letmein", "welcome", "iloveyou", "admin", "monkey", "dragon",
}

// Score rates password strength from 0 to 5: one point each for meeting the
// minimum length and containing a lowercase letter, an uppercase letter, a
// digit, and a symbol, a bonus point for length >= 12, and a one-point
// penalty for repeated runs or keyboard/dictionary sequences. The result is
// floored at 0 and capped at 5. Feedback lists the unmet requirements in
// user-facing form.
func (h *Hasher) Score(password string) (int, []string) {
	score := 0
	var feedback []string

	if len(password) >= h.config.MinLength {
		score++
	} else {
		feedback = append(feedback, "use at least "+strconv.Itoa(h.config.MinLength)+" characters")
	}

	classes := classifyRunes(password)
	if classes.lower {
		score++
	} else {
		feedback = append(feedback, "add lowercase letters")
	}
	if classes.upper {
		score++
	} else {
		feedback = append(feedback, "add uppercase letters")
	}
	if classes.digit {
		score++
	} else {
		feedback = append(feedback, "add digits")
	}
	if classes.symbol {
		score++
	} else {
		feedback = append(feedback, "add symbols")
	}

	if len(password) >= 12 {
		score++
	} else {
		feedback = append(feedback, "use at least 12 characters for a stronger password")
	}

	if hasPredictablePattern(password) {
		score--
		feedback = append(feedback, "avoid repeated or sequential characters")
	}

	if score < 0 {
		score = 0
	}
	if score > 5 {
		score = 5
	}

	return score, feedback
}

func hasPredictablePattern(password string) bool {
	lowered := strings.ToLower(password)

	for _, seq := range commonSequences {
		if strings.Contains(lowered, seq) {
			return true
		}
	}

	// Three or more of the same character in a row.
	run := 1
	for i := 1; i < len(lowered); i++ {
		if lowered[i] == lowered[i-1] {
			run++
			if run >= 3 {
				return true
			}
		} else {
			run = 1
		}
	}

	return false
}

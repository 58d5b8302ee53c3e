package scoring

import (
	"strings"
	"unicode/utf16"

	"github.com/JaimeStill/botwatch/internal/profiles"
)

var (
	genericUsernames = []string{"user", "test", "bot", "fake", "spam", "temp"}
	genericNames     = []string{"test", "fake", "bot", "spam", "user", "account"}
)

// UsernamePatternScore rates how machine-generated a username looks, in [0, 1].
// Lengths are measured in UTF-16 code units. An empty username scores 0.
func UsernamePatternScore(username string) float64 {
	if username == "" {
		return 0
	}

	var score float64
	units := utf16.Encode([]rune(username))

	if len(units) < 3 {
		score += 0.3
	}
	if len(units) > 20 {
		score += 0.2
	}
	if longestDigitRun(username) >= 4 {
		score += 0.3
	}
	if strings.Count(username, ".")+strings.Count(username, "_") > 2 {
		score += 0.2
	}
	if hasTripleRepeat(units) {
		score += 0.2
	}
	if containsAny(strings.ToLower(username), genericUsernames) {
		score += 0.4
	}

	return min(score, 1)
}

// DisplayNamePatternScore rates how suspicious a display name looks, in [0, 1].
// A missing name scores 0.2.
func DisplayNamePatternScore(name string) float64 {
	if name == "" {
		return 0.2
	}

	var score float64
	units := utf16.Encode([]rune(name))

	if len(units) < 2 {
		score += 0.3
	}
	if len(units) > 50 {
		score += 0.1
	}
	if countDigits(name) > 3 {
		score += 0.2
	}
	if countSymbols(units) > 3 {
		score += 0.2
	}
	if containsAny(strings.ToLower(name), genericNames) {
		score += 0.3
	}

	return min(score, 1)
}

// FollowerFollowingRatioScore maps the follower/following ratio to a
// suspicion value in [0, 10]. Accounts following nobody score 10 when they
// have followers and 1 otherwise; the result is not clamped to [0, 1].
func FollowerFollowingRatioScore(followers, following int) float64 {
	if following == 0 {
		if followers > 0 {
			return 10
		}
		return 1
	}

	ratio := float64(followers) / float64(following)
	if ratio < 0.1 {
		return 1
	}
	if ratio > 10 {
		return 0
	}
	return max(0, (1-ratio)*0.5)
}

// AccountAgeEstimate guesses how established an account is from its
// enrichment signals, in [0, 1].
func AccountAgeEstimate(p profiles.Profile) float64 {
	var age float64

	if p.HasBiography {
		age += 0.2
	}
	if p.HasExternalURL {
		age += 0.1
	}
	if p.MediaCount > 10 {
		age += 0.3
	}
	if p.MediaCount > 50 {
		age += 0.2
	}
	if p.HasStories {
		age += 0.1
	}
	if p.HasHighlights {
		age += 0.1
	}
	if p.IsBusiness {
		age += 0.2
	}

	return min(age, 1)
}

func longestDigitRun(s string) int {
	longest, run := 0, 0
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return longest
}

func countDigits(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			n++
		}
	}
	return n
}

// hasTripleRepeat reports whether any code unit other than a line
// terminator appears three or more times in a row.
func hasTripleRepeat(units []uint16) bool {
	for i := 0; i+2 < len(units); i++ {
		u := units[i]
		if isLineTerminator(u) {
			continue
		}
		if units[i+1] == u && units[i+2] == u {
			return true
		}
	}
	return false
}

// countSymbols counts code units that are neither ASCII alphanumerics nor
// whitespace. Characters outside the BMP count once per surrogate.
func countSymbols(units []uint16) int {
	n := 0
	for _, u := range units {
		if u < 0x80 && (isDigit(byte(u)) || isASCIILetter(byte(u))) {
			continue
		}
		if isSpace(u) {
			continue
		}
		n++
	}
	return n
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isLineTerminator(u uint16) bool {
	return u == '\n' || u == '\r' || u == 0x2028 || u == 0x2029
}

func isSpace(u uint16) bool {
	switch {
	case u == ' ', u >= '\t' && u <= '\r':
		return true
	case u == 0x00a0, u == 0x1680, u >= 0x2000 && u <= 0x200a:
		return true
	case u == 0x2028, u == 0x2029, u == 0x202f, u == 0x205f, u == 0x3000, u == 0xfeff:
		return true
	}
	return false
}

package classifier

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// HeuristicResult is the outcome of the cheap irrelevance scoring stage.
type HeuristicResult struct {
	Decided    bool   // true when the heuristic alone settled irrelevance
	Irrelevant bool
	Reason     string
	Score      int  // the more negative, the more irrelevant
	Uncertain  bool // true enables the LLM fallback stage
}

// irrelevanceCutoff: scores at or below this value are decisively irrelevant
// and must never reach the external classifier.
const irrelevanceCutoff = -3

var (
	noiseChars       = regexp.MustCompile("[\"'`*_~-]")
	multiSpace       = regexp.MustCompile(`\s+`)
	nonLetter        = regexp.MustCompile(`(?i)[^a-zà-ú0-9?]`)
	punctOnly        = regexp.MustCompile(`^[?¿¡!]+$`)
	ackPhrase        = regexp.MustCompile(`(?i)^(ok|blz|vlw|valeu|thanks?|obg|obrigado|obrigada)$`)
	emojiOnly        = regexp.MustCompile(`^[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}\x{FE0F}\x{200D}]+$`)
	interrogativeKey = regexp.MustCompile(`(?i)(como|qual|quais|quando|onde|por que|porque|exemplo|diferença|usar|fazer)\b`)
	shortInterrog    = regexp.MustCompile(`(?i)(como|qual|por que|porque|onde|quando)\b`)
)

// NormalizeKey lowers, strips punctuation noise and collapses whitespace so
// near-identical texts share one cache entry.
func NormalizeKey(text string) string {
	key := strings.ToLower(text)
	key = noiseChars.ReplaceAllString(key, "")
	key = multiSpace.ReplaceAllString(key, " ")
	return strings.TrimSpace(key)
}

// HeuristicIrrelevance scores raw text against cheap signals. recentIgnored
// holds normalized keys of texts recently routed to IGNORE, used for
// duplicate suppression.
func HeuristicIrrelevance(textRaw string, recentIgnored []string) HeuristicResult {
	text := strings.TrimSpace(textRaw)
	key := NormalizeKey(text)
	letters := nonLetter.ReplaceAllString(key, "")
	length := utf8.RuneCountInString(text)

	score := 0
	if letters == "" {
		score -= 5
	}
	if text != "" && punctOnly.MatchString(text) {
		score -= 4
	}
	if length < 3 {
		score -= 3
	}
	if ackPhrase.MatchString(key) {
		score -= 3
	}
	if text != "" && emojiOnly.MatchString(text) {
		score -= 4
	}
	for _, ig := range recentIgnored {
		if ig == key {
			score -= 4
			break
		}
	}

	if strings.Contains(text, "?") {
		score++
	}
	if interrogativeKey.MatchString(key) {
		score += 2
	}
	if length >= 15 {
		score++
	}

	if score <= irrelevanceCutoff {
		return HeuristicResult{
			Decided:    true,
			Irrelevant: true,
			Reason:     "heuristic:score",
			Score:      score,
		}
	}

	// Short texts without an interrogative keyword sit in the uncertainty
	// band and may trigger the LLM fallback.
	uncertain := length >= 3 && length <= 12 && !shortInterrog.MatchString(key)
	return HeuristicResult{Score: score, Uncertain: uncertain}
}

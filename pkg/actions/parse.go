package actions

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Shared extraction patterns. Each helper tries the message text first and
// falls back to the LLM-extracted parameter of the same name.
var (
	addressPattern  = regexp.MustCompile(`0x[0-9a-fA-F]{40}`)
	pairPattern     = regexp.MustCompile(`\b([A-Za-z]{2,10})/([A-Za-z]{2,10})\b`)
	amountPattern   = regexp.MustCompile(`\$?(\d+(?:\.\d+)?)\b`)
	leveragePattern = regexp.MustCompile(`(?i)\b(\d+)x\b`)
	idPattern       = regexp.MustCompile(`\b([A-Za-z]{2,10}_\d{9,})\b`)
)

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func containsAny(text string, words ...string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func parseAddress(msg Message, key string) (common.Address, bool) {
	if m := addressPattern.FindString(msg.Text); m != "" {
		return common.HexToAddress(m), true
	}
	if p := msg.Param(key); addressPattern.MatchString(p) {
		return common.HexToAddress(p), true
	}
	return common.Address{}, false
}

func parsePair(msg Message, key string) (base, quote string, ok bool) {
	if m := pairPattern.FindStringSubmatch(msg.Text); m != nil {
		return strings.ToUpper(m[1]), strings.ToUpper(m[2]), true
	}
	if m := pairPattern.FindStringSubmatch(msg.Param(key)); m != nil {
		return strings.ToUpper(m[1]), strings.ToUpper(m[2]), true
	}
	return "", "", false
}

// parseAmounts returns every bare number in the text, in order. Leverage
// suffixes like "5x" are not amounts and are skipped.
func parseAmounts(text string) []float64 {
	stripped := leveragePattern.ReplaceAllString(text, "")
	var out []float64
	for _, m := range amountPattern.FindAllStringSubmatch(stripped, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}

func parseAmount(msg Message, key string) (float64, bool) {
	if amounts := parseAmounts(msg.Text); len(amounts) > 0 {
		return amounts[0], true
	}
	if v, err := strconv.ParseFloat(strings.TrimPrefix(msg.Param(key), "$"), 64); err == nil {
		return v, true
	}
	return 0, false
}

func parseLeverage(msg Message, key string) int {
	if m := leveragePattern.FindStringSubmatch(msg.Text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v
		}
	}
	if v, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(msg.Param(key)), "x")); err == nil {
		return v
	}
	return 0
}

func parsePositionID(msg Message, key string) (string, bool) {
	if m := idPattern.FindString(msg.Text); m != "" {
		return m, true
	}
	if p := msg.Param(key); idPattern.MatchString(p) {
		return p, true
	}
	return "", false
}

// parseSymbol finds the first known token symbol mentioned in the message.
func parseSymbol(msg Message, key string, known func(string) bool) (string, bool) {
	for _, word := range strings.Fields(msg.Text) {
		candidate := strings.ToUpper(strings.Trim(word, ".,!?"))
		if known(candidate) {
			return candidate, true
		}
	}
	if p := strings.ToUpper(msg.Param(key)); p != "" && known(p) {
		return p, true
	}
	return "", false
}

package pricing

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"awsmp-go-scraper/internal/models"
)

var (
	freeWordRe     = regexp.MustCompile(`\bfree\b`)
	contractTermRe = regexp.MustCompile(`(?i)\b(\d+)\s*-?\s*month contract\b`)
	priceRe        = regexp.MustCompile(`\$\s*([0-9]{1,3}(?:,[0-9]{3})*(?:\.[0-9]{2})?)`)
)

// rule is one step of the classification cascade. Order is significant:
// phrases overlap ("free trial" must be checked before a bare "free"), so the
// list is walked top to bottom with early exit.
type rule struct {
	tag   string
	match func(t string) bool
}

func contains(subs ...string) func(string) bool {
	return func(t string) bool {
		for _, s := range subs {
			if strings.Contains(t, s) {
				return true
			}
		}
		return false
	}
}

var rules = []rule{
	{"free_trial", contains("free trial")},
	{"free", func(t string) bool {
		// weak signal: a bare "free" only counts with no visible price language
		return freeWordRe.MatchString(t) && !strings.Contains(t, "$") && !strings.Contains(t, "cost/")
	}},
	{"byol", contains("bring your own license", "byol")},
	{"usage_based", contains("usage-based", "usage based")},
	{"hourly", contains("cost/hour", "hourly")},
	{"monthly", contains("cost/month")},
	{"contract", contains(
		"12-month contract", "12 month contract",
		"cost/12 months", "cost/12-month",
		"pricing is based on the duration and terms of your contract",
	)},
	{"annual", contains("annual")},
	{"contact_seller", func(t string) bool {
		return strings.Contains(t, "contact seller") ||
			(strings.Contains(t, "contact") && strings.Contains(t, "pricing"))
	}},
}

// Classify maps normalized page text to a pricing tag. Total: every input,
// including the empty string, yields exactly one tag, defaulting to unknown.
func Classify(text string) string {
	t := strings.ToLower(text)
	for _, r := range rules {
		if r.match(t) {
			return r.tag
		}
	}
	return "unknown"
}

// ParseDetails extracts the pricing signals of a product page: tag, contract
// terms, and the min/max of visible dollar amounts.
func ParseDetails(text string) models.Pricing {
	out := models.Pricing{Type: Classify(text)}

	if terms := ContractTerms(text); len(terms) > 0 {
		parts := make([]string, len(terms))
		for i, n := range terms {
			parts[i] = fmt.Sprintf("%d-month", n)
		}
		out.ContractTerms = models.StrPtr(strings.Join(parts, ","))
	}

	var vals []float64
	for _, m := range priceRe.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		vals = append(vals, v)
	}
	if len(vals) > 0 {
		lo, hi := vals[0], vals[0]
		for _, v := range vals[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		out.Visible = 1
		out.MinUSD = models.FloatPtr(lo)
		out.MaxUSD = models.FloatPtr(hi)
	}
	return out
}

// ContractTerms returns the distinct N-month contract durations in the text,
// sorted numerically.
func ContractTerms(text string) []int {
	seen := map[int]bool{}
	var terms []int
	for _, m := range contractTermRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		terms = append(terms, n)
	}
	sort.Ints(terms)
	return terms
}

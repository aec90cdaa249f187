package rules

import "sort"

// Rule weights. Higher weights apply first.
const (
	WeightFallback = 0
	WeightDynamic  = 1
	WeightStatic   = 2
)

// Rule is one rewrite or redirect entry.
type Rule struct {
	Dynamic bool   `json:"dynamic"`
	Input   string `json:"input"`
	Target  string `json:"target"`
	Status  int    `json:"status"`
	Weight  int    `json:"weight"`
}

// IsRedirect reports whether the rule answers with a 3xx status.
func (r Rule) IsRedirect() bool {
	return r.Status >= 300 && r.Status < 400
}

// Rules is an ordered rule collection. Entries are kept sorted by weight,
// highest first. Entries of equal weight keep insertion order.
type Rules struct {
	entries []Rule
}

// New returns an empty collection.
func New() *Rules {
	return &Rules{}
}

// Add inserts r after every entry with a weight greater than or equal to its own.
func (rs *Rules) Add(r Rule) {
	i := sort.Search(len(rs.entries), func(i int) bool {
		return rs.entries[i].Weight < r.Weight
	})
	rs.entries = append(rs.entries, Rule{})
	copy(rs.entries[i+1:], rs.entries[i:])
	rs.entries[i] = r
}

// Entries returns a copy of the rules in application order.
func (rs *Rules) Entries() []Rule {
	out := make([]Rule, len(rs.entries))
	copy(out, rs.entries)
	return out
}

// Len returns the number of rules.
func (rs *Rules) Len() int {
	return len(rs.entries)
}

// Empty reports whether the collection has no rules.
func (rs *Rules) Empty() bool {
	return len(rs.entries) == 0
}

// CountByWeight returns the number of rules per weight.
func (rs *Rules) CountByWeight() map[int]int {
	counts := make(map[int]int, 3)
	for _, r := range rs.entries {
		counts[r.Weight]++
	}
	return counts
}

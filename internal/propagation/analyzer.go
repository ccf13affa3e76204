// Package propagation derives the referral-creation graph: code A parents
// code B when B's creator originally signed up under A. Malformed data can
// make this graph cyclic, so traversal is memoized DFS with an on-stack
// guard instead of unbounded recursion.
package propagation

import (
	"sort"

	"refstats/internal/domain"
	"refstats/internal/index"
)

// Descendants is the finite result of a (possibly cycle-cut) subtree walk.
type Descendants struct {
	Total    int `json:"total"`
	MaxDepth int `json:"max_depth"`
}

// Stats is the per-code propagation readout.
type Stats struct {
	Code            string  `json:"code"`
	Descendants     int     `json:"descendants"`
	MaxDepth        int     `json:"max_depth"`
	Signups         int64   `json:"signups"`
	PropagationRate float64 `json:"propagation_rate"` // descendants / signups
}

type Analyzer struct {
	ix       *index.Index
	children map[string][]string // code -> codes created by its signups
	memo     map[string]Descendants
	onStack  map[string]bool
}

// New builds the adjacency list from code metadata: an edge A -> B exists
// when B's CreatedBy customer carries referral A. Codes created by customers
// without a real referral are roots.
func New(ix *index.Index) *Analyzer {
	a := &Analyzer{
		ix:       ix,
		children: make(map[string][]string),
		memo:     make(map[string]Descendants),
		onStack:  make(map[string]bool),
	}

	for code, meta := range ix.Meta {
		if meta.CreatedBy == "" {
			continue
		}
		creator, ok := ix.ByID[meta.CreatedBy]
		if !ok {
			continue
		}
		parent := creator.Referral
		if parent == "" || parent == domain.CodeUnassigned {
			continue
		}
		a.children[parent] = append(a.children[parent], code)
	}
	// deterministic traversal order
	for parent := range a.children {
		sort.Strings(a.children[parent])
	}

	return a
}

// Descendants walks the subtree under a code. Re-encountering a code already
// on the traversal stack cuts that branch with a zero result; the cycle is
// broken, not resolved. Results are memoized so ranking every code is O(n)
// amortized after the first full pass.
func (a *Analyzer) Descendants(code string) Descendants {
	if d, ok := a.memo[code]; ok {
		return d
	}
	if a.onStack[code] {
		return Descendants{}
	}

	a.onStack[code] = true
	var d Descendants
	for _, child := range a.children[code] {
		cd := a.Descendants(child)
		d.Total += cd.Total + 1
		if cd.MaxDepth+1 > d.MaxDepth {
			d.MaxDepth = cd.MaxDepth + 1
		}
	}
	delete(a.onStack, code)

	a.memo[code] = d
	return d
}

// Stats combines descendant counts with the code's all-time signups.
func (a *Analyzer) Stats(code string) Stats {
	d := a.Descendants(code)
	out := Stats{
		Code:        code,
		Descendants: d.Total,
		MaxDepth:    d.MaxDepth,
	}
	if agg, ok := a.ix.Aggregates[code]; ok {
		for _, n := range agg.SignupsByDate {
			out.Signups += n
		}
	}
	if out.Signups > 0 {
		out.PropagationRate = float64(out.Descendants) / float64(out.Signups)
	}
	return out
}

// Rank returns stats for every known code, most descendants first.
func (a *Analyzer) Rank() []Stats {
	codes := make(map[string]struct{}, len(a.ix.Meta)+len(a.ix.Aggregates))
	for code := range a.ix.Meta {
		codes[code] = struct{}{}
	}
	for code := range a.ix.Aggregates {
		codes[code] = struct{}{}
	}

	out := make([]Stats, 0, len(codes))
	for code := range codes {
		out = append(out, a.Stats(code))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Descendants != out[j].Descendants {
			return out[i].Descendants > out[j].Descendants
		}
		return out[i].Code < out[j].Code
	})
	return out
}

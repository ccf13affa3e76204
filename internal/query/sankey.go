package query

import (
	"sort"
	"strings"

	"refstats/internal/domain"
	"refstats/internal/index"
)

// SankeyNode is one side of a token in the bipartite flow graph. A token
// traded on both sides gets two nodes, labeled "(out)" and "(in)", which
// keeps the visual graph free of self-loops.
type SankeyNode struct {
	Name   string `json:"name"` // e.g. "ETH (out)"
	Symbol string `json:"symbol"`
	Out    bool   `json:"out"`
}

// SankeyEdge references node indices in SankeyData.Nodes.
type SankeyEdge struct {
	Source    int     `json:"source"`
	Target    int     `json:"target"`
	VolumeUSD float64 `json:"volume_usd"`
	TxCount   int64   `json:"tx_count"`
}

type SankeyData struct {
	Nodes []SankeyNode `json:"nodes"`
	Edges []SankeyEdge `json:"edges"`
}

type pairAgg struct {
	from, to  string
	volumeUSD float64
	txCount   int64
}

// SwapFlowSankey aggregates swap pairs within the range, keeps the top
// `limit` by volume (tx count as tiebreak) and lays them out as a bipartite
// node/edge graph with nodes ordered by total incident volume descending.
func SwapFlowSankey(ix *index.Index, code string, r Range, limit int) SankeyData {
	out := SankeyData{Nodes: []SankeyNode{}, Edges: []SankeyEdge{}}

	agg := lookup(ix, code)
	if agg == nil {
		return out
	}

	byPair := make(map[string]*pairAgg)
	for day, pairs := range agg.Buckets.SwapPairsDaily {
		if !r.Contains(day) {
			continue
		}
		for key, stat := range pairs {
			pa := byPair[key]
			if pa == nil {
				from, to, ok := splitPair(key)
				if !ok {
					continue
				}
				pa = &pairAgg{from: from, to: to}
				byPair[key] = pa
			}
			pa.volumeUSD += stat.VolumeUSD
			pa.txCount += stat.TxCount
		}
	}

	ranked := make([]*pairAgg, 0, len(byPair))
	for _, pa := range byPair {
		ranked = append(ranked, pa)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].volumeUSD != ranked[j].volumeUSD {
			return ranked[i].volumeUSD > ranked[j].volumeUSD
		}
		if ranked[i].txCount != ranked[j].txCount {
			return ranked[i].txCount > ranked[j].txCount
		}
		return domain.PairKey(ranked[i].from, ranked[i].to) < domain.PairKey(ranked[j].from, ranked[j].to)
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	// incident volume per (symbol, side) node
	type nodeKey struct {
		symbol string
		out    bool
	}
	incident := make(map[nodeKey]float64)
	for _, pa := range ranked {
		incident[nodeKey{pa.from, true}] += pa.volumeUSD
		incident[nodeKey{pa.to, false}] += pa.volumeUSD
	}

	keys := make([]nodeKey, 0, len(incident))
	for k := range incident {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if incident[keys[i]] != incident[keys[j]] {
			return incident[keys[i]] > incident[keys[j]]
		}
		if keys[i].symbol != keys[j].symbol {
			return keys[i].symbol < keys[j].symbol
		}
		return keys[i].out && !keys[j].out
	})

	idx := make(map[nodeKey]int, len(keys))
	for i, k := range keys {
		side := "(in)"
		if k.out {
			side = "(out)"
		}
		out.Nodes = append(out.Nodes, SankeyNode{
			Name:   k.symbol + " " + side,
			Symbol: k.symbol,
			Out:    k.out,
		})
		idx[k] = i
	}

	for _, pa := range ranked {
		out.Edges = append(out.Edges, SankeyEdge{
			Source:    idx[nodeKey{pa.from, true}],
			Target:    idx[nodeKey{pa.to, false}],
			VolumeUSD: pa.volumeUSD,
			TxCount:   pa.txCount,
		})
	}

	return out
}

func splitPair(key string) (from, to string, ok bool) {
	parts := strings.SplitN(key, "→", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

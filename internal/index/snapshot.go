package index

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"sort"

	"refstats/internal/domain"
)

/*
	Snapshot is the flat, order-stable representation of a whole Index. Every
	map is flattened into a key-sorted pair list so the encoded bytes are
	reproducible for content hashing. Round-trip rule: Deserialize(Serialize(ix))
	answers every query exactly like ix.
*/

const snapshotVersion = 1

type Snapshot struct {
	Version int `json:"version"`

	Options domain.Options `json:"options"`
	Totals  domain.Totals  `json:"totals"`

	Customers []domain.Customer         `json:"customers"`
	Meta      []domain.ReferralCodeMeta `json:"meta"`

	// Per-code aggregates carry their user lists; the global aggregate does
	// not, its wallet table is replayed from the per-code lists on decode.
	Aggregates []AggregateSnap `json:"aggregates"`
	Global     AggregateSnap   `json:"global"`

	OwnerUsage    []UsageSnap `json:"owner_usage"`
	CustomerUsage []UsageSnap `json:"customer_usage"`
}

type CountPair struct {
	Day string `json:"day"`
	N   int64  `json:"n"`
}

type DailyPair struct {
	Day  string           `json:"day"`
	Stat domain.DailyStat `json:"stat"`
}

type CategoryPair struct {
	Key  string              `json:"key"`
	Stat domain.CategoryStat `json:"stat"`
}

type TokenPair struct {
	Key  string           `json:"key"`
	Stat domain.TokenStat `json:"stat"`
}

type SwapPair struct {
	Key  string          `json:"key"`
	Stat domain.PairStat `json:"stat"`
}

type CategoryDay struct {
	Day   string         `json:"day"`
	Stats []CategoryPair `json:"stats"`
}

type TokenDay struct {
	Day   string      `json:"day"`
	Stats []TokenPair `json:"stats"`
}

type SwapDay struct {
	Day   string     `json:"day"`
	Stats []SwapPair `json:"stats"`
}

type BucketsSnap struct {
	DailyTotal domain.DailyStat `json:"daily_total"`
	Daily      []DailyPair      `json:"daily"`

	FeeByCategory      []CategoryPair `json:"fee_by_category"`
	FeeByCategoryDaily []CategoryDay  `json:"fee_by_category_daily"`

	VolumeByCategory      []CategoryPair `json:"volume_by_category"`
	VolumeByCategoryDaily []CategoryDay  `json:"volume_by_category_daily"`

	TokenVolume      []TokenPair `json:"token_volume"`
	TokenVolumeDaily []TokenDay  `json:"token_volume_daily"`

	SwapPairs      []SwapPair `json:"swap_pairs"`
	SwapPairsDaily []SwapDay  `json:"swap_pairs_daily"`
}

type AggregateSnap struct {
	Code string `json:"code"`

	Signups []CountPair `json:"signups"`
	KYC     []CountPair `json:"kyc"`
	FirstTx []CountPair `json:"first_tx"`

	Buckets BucketsSnap `json:"buckets"`

	Users []domain.UserAggregate `json:"users,omitempty"`

	TopRevenueTxs []domain.RevenueTransaction `json:"top_revenue_txs"`

	FeeUSDTotal    float64 `json:"fee_usd_total"`
	VolumeUSDTotal float64 `json:"volume_usd_total"`
	RevenueTxCount int64   `json:"revenue_tx_count"`
}

type UsageSnap struct {
	ID   string      `json:"id"`
	Days []DailyPair `json:"days"`
}

// Serialize flattens the index into a Snapshot.
func Serialize(ix *Index) *Snapshot {
	snap := &Snapshot{
		Version: snapshotVersion,
		Options: ix.Opts,
		Totals:  ix.Totals,
	}

	for _, id := range sortedKeys(ix.ByID) {
		snap.Customers = append(snap.Customers, *ix.ByID[id])
	}
	for _, code := range sortedKeys(ix.Meta) {
		snap.Meta = append(snap.Meta, *ix.Meta[code])
	}
	for _, code := range sortedKeys(ix.Aggregates) {
		snap.Aggregates = append(snap.Aggregates, snapAggregate(ix.Aggregates[code], true))
	}
	snap.Global = snapAggregate(ix.Global, false)

	snap.OwnerUsage = snapUsage(ix.OwnerUsageDaily)
	snap.CustomerUsage = snapUsage(ix.CustomerUsageDaily)

	return snap
}

// Deserialize rebuilds a queryable Index from a Snapshot. The wallet cross
// reference tables are re-established by replaying the per-code user lists.
func Deserialize(snap *Snapshot) (*Index, error) {
	if snap == nil {
		return nil, errors.New("nil snapshot")
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version: %d", snap.Version)
	}

	ix := New(snap.Options)
	ix.Totals = snap.Totals

	for i := range snap.Customers {
		c := snap.Customers[i]
		ix.ByID[c.ID] = &c
		ix.ByWallet[c.SmartWallet] = &c
	}
	for i := range snap.Meta {
		m := snap.Meta[i]
		ix.Meta[m.Code] = &m
	}

	for i := range snap.Aggregates {
		agg := unsnapAggregate(&snap.Aggregates[i])
		ix.Aggregates[agg.Code] = agg
		for w, ua := range agg.Users {
			ix.UsersByWallet[w] = ua
			ix.Global.Users[w] = ua
		}
	}

	global := unsnapAggregate(&snap.Global)
	global.Users = ix.Global.Users
	ix.Global = global

	ix.OwnerUsageDaily = unsnapUsage(snap.OwnerUsage)
	ix.CustomerUsageDaily = unsnapUsage(snap.CustomerUsage)

	return ix, nil
}

// Encode serializes the index to a gob blob, the unit of cache storage.
func Encode(ix *Index) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(Serialize(ix)); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode rebuilds an index from a gob blob produced by Encode.
func Decode(data []byte) (*Index, error) {
	if len(data) == 0 {
		return nil, errors.New("empty snapshot data")
	}
	var snap Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return Deserialize(&snap)
}

func snapAggregate(agg *ReferralAggregate, withUsers bool) AggregateSnap {
	out := AggregateSnap{
		Code:           agg.Code,
		Signups:        snapCounts(agg.SignupsByDate),
		KYC:            snapCounts(agg.KYCByDate),
		FirstTx:        snapCounts(agg.FirstTxByDate),
		Buckets:        snapBuckets(agg.Buckets),
		TopRevenueTxs:  append([]domain.RevenueTransaction(nil), agg.TopRevenueTxs...),
		FeeUSDTotal:    agg.FeeUSDTotal,
		VolumeUSDTotal: agg.VolumeUSDTotal,
		RevenueTxCount: agg.RevenueTxCount,
	}
	if withUsers {
		for _, w := range sortedKeys(agg.Users) {
			out.Users = append(out.Users, *agg.Users[w])
		}
	}
	return out
}

func unsnapAggregate(snap *AggregateSnap) *ReferralAggregate {
	agg := NewReferralAggregate(snap.Code)
	agg.SignupsByDate = unsnapCounts(snap.Signups)
	agg.KYCByDate = unsnapCounts(snap.KYC)
	agg.FirstTxByDate = unsnapCounts(snap.FirstTx)
	agg.Buckets = unsnapBuckets(&snap.Buckets)
	agg.TopRevenueTxs = append([]domain.RevenueTransaction(nil), snap.TopRevenueTxs...)
	agg.FeeUSDTotal = snap.FeeUSDTotal
	agg.VolumeUSDTotal = snap.VolumeUSDTotal
	agg.RevenueTxCount = snap.RevenueTxCount

	for i := range snap.Users {
		ua := snap.Users[i]
		agg.Users[ua.Wallet] = &ua
	}
	return agg
}

func snapBuckets(b *Buckets) BucketsSnap {
	out := BucketsSnap{DailyTotal: b.DailyTotal}

	for _, day := range sortedKeys(b.Daily) {
		out.Daily = append(out.Daily, DailyPair{Day: day, Stat: *b.Daily[day]})
	}

	out.FeeByCategory = snapCategories(b.FeeByCategory)
	out.VolumeByCategory = snapCategories(b.VolumeByCategory)
	for _, day := range sortedKeys(b.FeeByCategoryDaily) {
		out.FeeByCategoryDaily = append(out.FeeByCategoryDaily, CategoryDay{Day: day, Stats: snapCategories(b.FeeByCategoryDaily[day])})
	}
	for _, day := range sortedKeys(b.VolumeByCategoryDaily) {
		out.VolumeByCategoryDaily = append(out.VolumeByCategoryDaily, CategoryDay{Day: day, Stats: snapCategories(b.VolumeByCategoryDaily[day])})
	}

	for _, sym := range sortedKeys(b.TokenVolume) {
		out.TokenVolume = append(out.TokenVolume, TokenPair{Key: sym, Stat: *b.TokenVolume[sym]})
	}
	for _, day := range sortedKeys(b.TokenVolumeDaily) {
		td := TokenDay{Day: day}
		inner := b.TokenVolumeDaily[day]
		for _, sym := range sortedKeys(inner) {
			td.Stats = append(td.Stats, TokenPair{Key: sym, Stat: *inner[sym]})
		}
		out.TokenVolumeDaily = append(out.TokenVolumeDaily, td)
	}

	for _, pair := range sortedKeys(b.SwapPairs) {
		out.SwapPairs = append(out.SwapPairs, SwapPair{Key: pair, Stat: *b.SwapPairs[pair]})
	}
	for _, day := range sortedKeys(b.SwapPairsDaily) {
		sd := SwapDay{Day: day}
		inner := b.SwapPairsDaily[day]
		for _, pair := range sortedKeys(inner) {
			sd.Stats = append(sd.Stats, SwapPair{Key: pair, Stat: *inner[pair]})
		}
		out.SwapPairsDaily = append(out.SwapPairsDaily, sd)
	}

	return out
}

func unsnapBuckets(snap *BucketsSnap) *Buckets {
	b := NewBuckets()
	b.DailyTotal = snap.DailyTotal

	for _, p := range snap.Daily {
		stat := p.Stat
		b.Daily[p.Day] = &stat
	}

	b.FeeByCategory = unsnapCategories(snap.FeeByCategory)
	b.VolumeByCategory = unsnapCategories(snap.VolumeByCategory)
	for _, cd := range snap.FeeByCategoryDaily {
		b.FeeByCategoryDaily[cd.Day] = unsnapCategories(cd.Stats)
	}
	for _, cd := range snap.VolumeByCategoryDaily {
		b.VolumeByCategoryDaily[cd.Day] = unsnapCategories(cd.Stats)
	}

	for _, p := range snap.TokenVolume {
		stat := p.Stat
		b.TokenVolume[p.Key] = &stat
	}
	for _, td := range snap.TokenVolumeDaily {
		m := make(map[string]*domain.TokenStat, len(td.Stats))
		for _, p := range td.Stats {
			stat := p.Stat
			m[p.Key] = &stat
		}
		b.TokenVolumeDaily[td.Day] = m
	}

	for _, p := range snap.SwapPairs {
		stat := p.Stat
		b.SwapPairs[p.Key] = &stat
	}
	for _, sd := range snap.SwapPairsDaily {
		m := make(map[string]*domain.PairStat, len(sd.Stats))
		for _, p := range sd.Stats {
			stat := p.Stat
			m[p.Key] = &stat
		}
		b.SwapPairsDaily[sd.Day] = m
	}

	return b
}

func snapCategories(m map[string]*domain.CategoryStat) []CategoryPair {
	out := make([]CategoryPair, 0, len(m))
	for _, key := range sortedKeys(m) {
		out = append(out, CategoryPair{Key: key, Stat: *m[key]})
	}
	return out
}

func unsnapCategories(pairs []CategoryPair) map[string]*domain.CategoryStat {
	m := make(map[string]*domain.CategoryStat, len(pairs))
	for _, p := range pairs {
		stat := p.Stat
		m[p.Key] = &stat
	}
	return m
}

func snapCounts(m map[string]int64) []CountPair {
	out := make([]CountPair, 0, len(m))
	for _, day := range sortedKeys(m) {
		out = append(out, CountPair{Day: day, N: m[day]})
	}
	return out
}

func unsnapCounts(pairs []CountPair) map[string]int64 {
	m := make(map[string]int64, len(pairs))
	for _, p := range pairs {
		m[p.Day] = p.N
	}
	return m
}

func snapUsage(table map[string]map[string]*domain.DailyStat) []UsageSnap {
	out := make([]UsageSnap, 0, len(table))
	for _, id := range sortedKeys(table) {
		us := UsageSnap{ID: id}
		inner := table[id]
		for _, day := range sortedKeys(inner) {
			us.Days = append(us.Days, DailyPair{Day: day, Stat: *inner[day]})
		}
		out = append(out, us)
	}
	return out
}

func unsnapUsage(snaps []UsageSnap) map[string]map[string]*domain.DailyStat {
	table := make(map[string]map[string]*domain.DailyStat, len(snaps))
	for _, us := range snaps {
		m := make(map[string]*domain.DailyStat, len(us.Days))
		for _, p := range us.Days {
			stat := p.Stat
			m[p.Day] = &stat
		}
		table[us.ID] = m
	}
	return table
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package index

import (
	"refstats/internal/domain"
)

/*
	Bucket families shared by every referral aggregate. Each family carries a
	totals variant and a daily variant and both are updated on every ingest;
	totals are never derived lazily from the daily maps.
*/

type Buckets struct {
	DailyTotal domain.DailyStat
	Daily      map[string]*domain.DailyStat // day -> stat

	FeeByCategory      map[string]*domain.CategoryStat            // category -> fee
	FeeByCategoryDaily map[string]map[string]*domain.CategoryStat // day -> category -> fee

	VolumeByCategory      map[string]*domain.CategoryStat
	VolumeByCategoryDaily map[string]map[string]*domain.CategoryStat

	TokenVolume      map[string]*domain.TokenStat            // symbol -> stat
	TokenVolumeDaily map[string]map[string]*domain.TokenStat // day -> symbol -> stat

	SwapPairs      map[string]*domain.PairStat            // "FROM→TO" -> stat
	SwapPairsDaily map[string]map[string]*domain.PairStat // day -> pair -> stat
}

func NewBuckets() *Buckets {
	return &Buckets{
		Daily:                 make(map[string]*domain.DailyStat),
		FeeByCategory:         make(map[string]*domain.CategoryStat),
		FeeByCategoryDaily:    make(map[string]map[string]*domain.CategoryStat),
		VolumeByCategory:      make(map[string]*domain.CategoryStat),
		VolumeByCategoryDaily: make(map[string]map[string]*domain.CategoryStat),
		TokenVolume:           make(map[string]*domain.TokenStat),
		TokenVolumeDaily:      make(map[string]map[string]*domain.TokenStat),
		SwapPairs:             make(map[string]*domain.PairStat),
		SwapPairsDaily:        make(map[string]map[string]*domain.PairStat),
	}
}

func (b *Buckets) AddDaily(day string, feeUSD, volumeUSD float64) {
	b.DailyTotal.FeeUSD += feeUSD
	b.DailyTotal.VolumeUSD += volumeUSD
	b.DailyTotal.RevenueTxCount++

	d, ok := b.Daily[day]
	if !ok {
		d = &domain.DailyStat{}
		b.Daily[day] = d
	}
	d.FeeUSD += feeUSD
	d.VolumeUSD += volumeUSD
	d.RevenueTxCount++
}

func (b *Buckets) AddCategory(day, category string, feeUSD, volumeUSD float64) {
	bumpCategory(b.FeeByCategory, category, feeUSD)
	bumpCategory(dailyCategory(b.FeeByCategoryDaily, day), category, feeUSD)

	bumpCategory(b.VolumeByCategory, category, volumeUSD)
	bumpCategory(dailyCategory(b.VolumeByCategoryDaily, day), category, volumeUSD)
}

func (b *Buckets) AddToken(day, symbol string, volumeUSD float64) {
	bumpToken(b.TokenVolume, symbol, volumeUSD)

	m, ok := b.TokenVolumeDaily[day]
	if !ok {
		m = make(map[string]*domain.TokenStat)
		b.TokenVolumeDaily[day] = m
	}
	bumpToken(m, symbol, volumeUSD)
}

func (b *Buckets) AddSwapPair(day, from, to string, volumeUSD float64) {
	pair := domain.PairKey(from, to)

	bumpPair(b.SwapPairs, pair, volumeUSD)

	m, ok := b.SwapPairsDaily[day]
	if !ok {
		m = make(map[string]*domain.PairStat)
		b.SwapPairsDaily[day] = m
	}
	bumpPair(m, pair, volumeUSD)
}

func dailyCategory(daily map[string]map[string]*domain.CategoryStat, day string) map[string]*domain.CategoryStat {
	m, ok := daily[day]
	if !ok {
		m = make(map[string]*domain.CategoryStat)
		daily[day] = m
	}
	return m
}

func bumpCategory(m map[string]*domain.CategoryStat, key string, value float64) {
	s, ok := m[key]
	if !ok {
		s = &domain.CategoryStat{}
		m[key] = s
	}
	s.Value += value
	s.Count++
}

func bumpToken(m map[string]*domain.TokenStat, symbol string, volumeUSD float64) {
	s, ok := m[symbol]
	if !ok {
		s = &domain.TokenStat{}
		m[symbol] = s
	}
	s.VolumeUSD += volumeUSD
	s.TxCount++
}

func bumpPair(m map[string]*domain.PairStat, pair string, volumeUSD float64) {
	s, ok := m[pair]
	if !ok {
		s = &domain.PairStat{}
		m[pair] = s
	}
	s.VolumeUSD += volumeUSD
	s.TxCount++
}

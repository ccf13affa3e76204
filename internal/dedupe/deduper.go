package dedupe

// Deduper answers whether a transaction hash was already processed this
// session. alreadySeen=true means the record can be skipped.
type Deduper interface {
	Seen(id string) (alreadySeen bool, err error)
}

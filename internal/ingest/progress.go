package ingest

// ProgressFn reports how many records of a source have been applied. It is
// called from the decode loop, so implementations must not block; publishing
// to a broadcaster or updating an atomic counter is fine, waiting on a
// channel is not.
type ProgressFn func(records int)

// progressEvery keeps callback overhead negligible on large files.
const progressEvery = 1000

func report(fn ProgressFn, n int) {
	if fn != nil && (n%progressEvery == 0) {
		fn(n)
	}
}

func reportFinal(fn ProgressFn, n int) {
	if fn != nil {
		fn(n)
	}
}

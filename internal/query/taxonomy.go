package query

// Static regrouping of raw transaction categories into the human-facing
// taxonomy used by the breakdown views. Raw categories missing here stay in
// raw totals but never reach the grouped view.
var categoryGroups = map[string]string{
	"SWAP":           "Swap",
	"CROSS_SWAP":     "Swap",
	"TRANSFER":       "Transfer",
	"CROSS_TRANSFER": "Transfer",
	"BRIDGE":         "Bridge",
	"FIAT_ON_RAMP":   "On-ramp",
	"ON_RAMP":        "On-ramp",
	"FIAT_OFF_RAMP":  "Off-ramp",
	"OFF_RAMP":       "Off-ramp",
}

// GroupCategory maps a raw category to its display group.
func GroupCategory(raw string) (string, bool) {
	group, ok := categoryGroups[raw]
	return group, ok
}

package types

// Event kinds. Exact numeric values are a deployment choice (spec.md SS6);
// these are this module's defaults. InviteListKind sits in the substrate's
// replaceable range (10000-19999): the bus keeps only the newest event per
// (pubkey, kind, d-tag).
const (
	MessageKind        = 30078
	InviteEventKind    = 30077
	InviteResponseKind = 30076
	InviteListKind     = 10078
)

// ReplaceableRangeStart and ReplaceableRangeEnd bound the substrate's
// replaceable-event kind range.
const (
	ReplaceableRangeStart = 10000
	ReplaceableRangeEnd   = 20000
)

// IsReplaceable reports whether kind falls in the replaceable range.
func IsReplaceable(kind int) bool {
	return kind >= ReplaceableRangeStart && kind < ReplaceableRangeEnd
}

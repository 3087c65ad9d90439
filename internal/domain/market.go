package domain

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive  MarketStatus = "active"
	MarketStatusClosed  MarketStatus = "closed"
	MarketStatusUnknown MarketStatus = "unknown"
)

// CompositeKeySep separates the category slug from the title in a composite key.
const CompositeKeySep = "||"

// Market is one outcome-priced listing on one platform, rebuilt from fresh
// data on every scan and never mutated after construction.
type Market struct {
	Platform Platform
	NativeID string

	// ConditionKey is the cross-platform condition identifier in canonical
	// lowercase 0x-hex form. Empty when the platform does not expose one.
	ConditionKey string

	// CompositeKey is the lower-cased "{category_slug}||{title}" key.
	CompositeKey string

	CategorySlug string
	Title        string
	Question     string

	YesPrice float64
	NoPrice  float64
	Status   MarketStatus

	// TokenIDs are the yes/no token identifiers used to look up order-book
	// depth. Either may be empty when the platform has no book for that side.
	TokenIDs [2]string
	Volume   float64
}

// HasConditionKey reports whether the market can be matched by condition key.
func (m Market) HasConditionKey() bool { return m.ConditionKey != "" }

// Ref returns the (platform, native id) identity of the market.
func (m Market) Ref() MarketRef {
	return MarketRef{Platform: m.Platform, NativeID: m.NativeID}
}

// MarketRef identifies a market across platforms.
type MarketRef struct {
	Platform Platform
	NativeID string
}

func (r MarketRef) String() string { return string(r.Platform) + ":" + r.NativeID }

package shipping

import "errors"

var ErrInvalidRegion = errors.New("invalid region")

// DefaultFee is the flat rate applied to every deliverable region that is not
// on the free-shipping list.
const DefaultFee int64 = 30000

var validRegions = map[string]bool{
	"Hanoi":            true,
	"Ho Chi Minh City": true,
	"Da Nang":          true,
	"Hai Phong":        true,
	"Can Tho":          true,
	"Hue":              true,
}

// freeRegions is the free-shipping allow-list. Empty for now; kept so that
// promotions can flip a region without touching Fee.
var freeRegions = map[string]bool{}

type Quote struct {
	Fee    int64 `json:"fee"`
	IsFree bool  `json:"is_free"`
}

// Fee maps a delivery region to a shipping quote. An empty region falls back
// to the default flat fee; a region outside the deliverable list is rejected
// with ErrInvalidRegion so checkout can surface it instead of silently
// defaulting.
func Fee(region string) (Quote, error) {
	if region == "" {
		return Quote{Fee: DefaultFee}, nil
	}
	if !validRegions[region] {
		return Quote{}, ErrInvalidRegion
	}
	if freeRegions[region] {
		return Quote{Fee: 0, IsFree: true}, nil
	}
	return Quote{Fee: DefaultFee}, nil
}

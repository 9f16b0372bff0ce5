package ingest

import "slices"

// Format is the input shape, detected once from the header. It decides
// which funnel the charts can build.
type Format int

const (
	// FormatEventLog carries only the required columns; funnel stages are
	// derived from action labels.
	FormatEventLog Format = iota
	// FormatClickstream has Page_Type next to Action.
	FormatClickstream
	// FormatEShop has the clothing e-shop category, model and order columns.
	FormatEShop
)

const (
	ColumnPageType      = "Page_Type"
	ColumnMainCategory  = "page 1 (main category)"
	ColumnClothingModel = "page 2 (clothing model)"
	ColumnOrder         = "order"
)

func (f Format) String() string {
	switch f {
	case FormatClickstream:
		return "clickstream"
	case FormatEShop:
		return "e-shop"
	default:
		return "event-log"
	}
}

func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func DetectFormat(header []string) Format {
	if slices.Contains(header, ColumnPageType) {
		return FormatClickstream
	}
	if slices.Contains(header, ColumnMainCategory) &&
		slices.Contains(header, ColumnClothingModel) &&
		slices.Contains(header, ColumnOrder) {
		return FormatEShop
	}
	return FormatEventLog
}

package domain

import (
	"math"
	"strconv"
	"strings"
)

type Attribute string

const (
	AttrStock           Attribute = "stock"
	AttrStockStatus     Attribute = "stock_status"
	AttrThumbnail       Attribute = "thumbnail"
	AttrConsignment     Attribute = "consignment"
	AttrInitialQuantity Attribute = "initial_quantity"
	AttrShelfQuantity   Attribute = "shelf_quantity"
	AttrTotalPreorders  Attribute = "total_preorders"
)

// Attributes lists every attribute fetched for a record, in query column order.
var Attributes = []Attribute{
	AttrStock,
	AttrStockStatus,
	AttrThumbnail,
	AttrConsignment,
	AttrInitialQuantity,
	AttrShelfQuantity,
	AttrTotalPreorders,
}

// AttributeKeys maps each logical attribute to the meta key it is stored under.
type AttributeKeys map[Attribute]string

func DefaultAttributeKeys() AttributeKeys {
	return AttributeKeys{
		AttrStock:           "_stock",
		AttrStockStatus:     "_stock_status",
		AttrThumbnail:       "_thumbnail_id",
		AttrConsignment:     "_depot_vente",
		AttrInitialQuantity: "_initial_quantity",
		AttrShelfQuantity:   "_yyd_shelf_count",
		AttrTotalPreorders:  "_total_preorders",
	}
}

// With returns a copy of k where every non-empty override replaces the default key.
func (k AttributeKeys) With(overrides map[Attribute]string) AttributeKeys {
	out := make(AttributeKeys, len(k))
	for attr, key := range k {
		out[attr] = key
	}
	for attr, key := range overrides {
		if key != "" {
			out[attr] = key
		}
	}
	return out
}

// RawAttributes is the single-round-trip bundle returned by the catalog store.
// A nil value means the attribute row does not exist.
type RawAttributes struct {
	ProductID  int64
	Title      string
	PostStatus string
	Values     map[Attribute]*string
}

func (r *RawAttributes) Present(attr Attribute) bool {
	if r.Values == nil {
		return false
	}
	return r.Values[attr] != nil
}

func (r *RawAttributes) String(attr Attribute, def string) string {
	if !r.Present(attr) {
		return def
	}
	return *r.Values[attr]
}

// Int parses the attribute as an integer. Decimal values are truncated and
// anything unparseable yields 0, matching how the catalog coerces meta values.
func (r *RawAttributes) Int(attr Attribute, def int) int {
	if !r.Present(attr) {
		return def
	}
	return coerceInt(*r.Values[attr])
}

// AttachmentID returns the thumbnail reference, or 0 when none is set.
func (r *RawAttributes) AttachmentID() int64 {
	v := strings.TrimSpace(r.String(AttrThumbnail, ""))
	if v == "" || v == "0" {
		return 0
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

func (r *RawAttributes) PublicationState() PublicationState {
	return PublicationStateOf(r.PostStatus)
}

func coerceInt(v string) int {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return floatToInt(f)
	}

	// leading numeric prefix, e.g. "12 units"
	end := 0
	for end < len(v) && (v[end] >= '0' && v[end] <= '9' || end == 0 && (v[end] == '-' || v[end] == '+')) {
		end++
	}
	n, err := strconv.Atoi(v[:end])
	if err != nil {
		return 0
	}
	return n
}

// floatToInt truncates f. NaN and infinities yield 0, out-of-range values
// saturate at the int bounds.
func floatToInt(f float64) int {
	switch {
	case math.IsNaN(f), math.IsInf(f, 0):
		return 0
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	default:
		return int(f)
	}
}

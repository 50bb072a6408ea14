package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func strp(s string) *string { return &s }

func TestNormalizeSKU(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "abc123", want: "ABC123"},
		{in: " x-1_b ", want: "X-1_B"},
		{in: "", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "abc 123", wantErr: true},
		{in: "abc/123", wantErr: true},
		{in: "ÄBC", wantErr: true},
	}

	for _, tc := range cases {
		got, err := NormalizeSKU(tc.in)
		if tc.wantErr {
			if err != ErrInvalidSKU {
				t.Errorf("NormalizeSKU(%q): expected ErrInvalidSKU, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeSKU(%q): unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("NormalizeSKU(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewProductRecord_Defaults(t *testing.T) {
	raw := &RawAttributes{
		ProductID:  42,
		Title:      "Some Record",
		PostStatus: "publish",
		Values:     map[Attribute]*string{},
	}

	rec := NewProductRecord("SKU1", raw, "")

	if rec.StockQuantity != 0 {
		t.Errorf("expected stock 0, got %d", rec.StockQuantity)
	}
	if rec.StockStatus != "outofstock" {
		t.Errorf("expected outofstock, got %s", rec.StockStatus)
	}
	if rec.ConsignmentFlag != "" || rec.InitialQuantity != "" || rec.ShelfQuantity != "" || rec.TotalPreorders != "" {
		t.Errorf("expected empty custom fields, got %+v", rec)
	}
	if !rec.Found || !rec.IsOnline {
		t.Errorf("expected found and online, got %+v", rec)
	}
}

func TestNewProductRecord_Populated(t *testing.T) {
	raw := &RawAttributes{
		ProductID:  7,
		Title:      "Vinyl",
		PostStatus: "publish",
		Values: map[Attribute]*string{
			AttrStock:           strp("12"),
			AttrStockStatus:     strp("instock"),
			AttrConsignment:     strp("yes"),
			AttrInitialQuantity: strp("30"),
			AttrShelfQuantity:   strp("4"),
			AttrTotalPreorders:  strp("9"),
		},
	}

	rec := NewProductRecord("SKU7", raw, "https://cdn.example.com/a.jpg")

	if rec.StockQuantity != 12 || rec.StockStatus != "instock" {
		t.Errorf("unexpected stock fields: %+v", rec)
	}
	if rec.ConsignmentFlag != "yes" || rec.InitialQuantity != "30" || rec.ShelfQuantity != "4" || rec.TotalPreorders != "9" {
		t.Errorf("unexpected custom fields: %+v", rec)
	}
	if rec.ImageURL != "https://cdn.example.com/a.jpg" {
		t.Errorf("unexpected image url: %s", rec.ImageURL)
	}
}

func TestRawAttributes_EmptyStatusIsKept(t *testing.T) {
	raw := &RawAttributes{Values: map[Attribute]*string{AttrStockStatus: strp("")}}
	if got := raw.String(AttrStockStatus, DefaultStockStatus); got != "" {
		t.Errorf("expected present empty value to be kept, got %q", got)
	}
}

func TestRawAttributes_Int(t *testing.T) {
	cases := map[string]int{
		"5":        5,
		"-3":       -3,
		"12.9":     12,
		"7 units":  7,
		"":         0,
		"abc":      0,
		" 8 ":      8,
		"1.000000": 1,
		"inf":      0,
		"-Inf":     0,
		"Infinity": 0,
		"NaN":      0,
		"1e30":     math.MaxInt,
		"-1e30":    math.MinInt,
		"1e3":      1000,
	}
	for in, want := range cases {
		raw := &RawAttributes{Values: map[Attribute]*string{AttrStock: strp(in)}}
		if got := raw.Int(AttrStock, 0); got != want {
			t.Errorf("Int(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestRawAttributes_AttachmentID(t *testing.T) {
	cases := []struct {
		value *string
		want  int64
	}{
		{nil, 0},
		{strp(""), 0},
		{strp("0"), 0},
		{strp("abc"), 0},
		{strp("1234"), 1234},
	}
	for _, tc := range cases {
		raw := &RawAttributes{Values: map[Attribute]*string{AttrThumbnail: tc.value}}
		if got := raw.AttachmentID(); got != tc.want {
			t.Errorf("AttachmentID() = %d, want %d", got, tc.want)
		}
	}
}

func TestAttributeKeys_With(t *testing.T) {
	keys := DefaultAttributeKeys().With(map[Attribute]string{
		AttrShelfQuantity: "yid_total_shelf",
		AttrStock:         "",
	})

	if keys[AttrShelfQuantity] != "yid_total_shelf" {
		t.Errorf("expected override, got %s", keys[AttrShelfQuantity])
	}
	if keys[AttrStock] != "_stock" {
		t.Errorf("expected default for empty override, got %s", keys[AttrStock])
	}
	if DefaultAttributeKeys()[AttrShelfQuantity] != "_yyd_shelf_count" {
		t.Error("defaults must not be mutated")
	}
}

func TestLookupResult_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(LookupResult{SKU: "ABC123"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"sku":"ABC123","found":false,"error":"Product not found"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}

	data, err = json.Marshal(LookupResult{SKU: "X1", Record: &ProductRecord{SKU: "X1", Found: true}})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["found"] != true || decoded["sku"] != "X1" {
		t.Errorf("unexpected record json: %s", data)
	}
	if _, ok := decoded["depot_vente"]; !ok {
		t.Errorf("expected depot_vente key in %s", data)
	}

	data, err = json.Marshal(LookupResult{SKU: "X2", Err: errors.New("server has gone away")})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want = `{"sku":"X2","found":false,"error":"store failure","code":"store_failure"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

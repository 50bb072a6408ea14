package domain

import "encoding/json"

const (
	DefaultStockStatus = "outofstock"
	NotFoundMessage    = "Product not found"

	StoreFailureMessage = "store failure"
	StoreFailureCode    = "store_failure"

	postStatusPublish = "publish"
)

type PublicationState string

const (
	PublicationPublished PublicationState = "published"
	PublicationOther     PublicationState = "other"
)

func PublicationStateOf(postStatus string) PublicationState {
	if postStatus == postStatusPublish {
		return PublicationPublished
	}
	return PublicationOther
}

// ProductRecord is the flattened stock projection of a published product.
type ProductRecord struct {
	SKU        string `json:"sku"`
	ProductID  int64  `json:"product_id"`
	Title      string `json:"title"`
	Found      bool   `json:"found"`
	IsOnline   bool   `json:"is_online"`
	PostStatus string `json:"post_status"`

	ImageURL string `json:"image_url"`

	StockQuantity int    `json:"stock_quantity"`
	StockStatus   string `json:"stock_status"`

	ConsignmentFlag string `json:"depot_vente"`
	InitialQuantity string `json:"initial_quantity"`
	ShelfQuantity   string `json:"shelf_quantity"`
	TotalPreorders  string `json:"total_preorders"`
}

func (p *ProductRecord) PublicationState() PublicationState {
	return PublicationStateOf(p.PostStatus)
}

// NewProductRecord flattens raw attributes, applying the field defaults.
func NewProductRecord(sku string, raw *RawAttributes, imageURL string) *ProductRecord {
	return &ProductRecord{
		SKU:        sku,
		ProductID:  raw.ProductID,
		Title:      raw.Title,
		Found:      true,
		IsOnline:   raw.PublicationState() == PublicationPublished,
		PostStatus: raw.PostStatus,

		ImageURL: imageURL,

		StockQuantity: raw.Int(AttrStock, 0),
		StockStatus:   raw.String(AttrStockStatus, DefaultStockStatus),

		ConsignmentFlag: raw.String(AttrConsignment, ""),
		InitialQuantity: raw.String(AttrInitialQuantity, ""),
		ShelfQuantity:   raw.String(AttrShelfQuantity, ""),
		TotalPreorders:  raw.String(AttrTotalPreorders, ""),
	}
}

// NotFoundMarker stands in for a batch entry without a record. Code is only
// set when the store failed, so a plain miss keeps the {sku, found, error} shape.
type NotFoundMarker struct {
	SKU   string `json:"sku"`
	Found bool   `json:"found"`
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func NewNotFoundMarker(sku string) NotFoundMarker {
	return NotFoundMarker{SKU: sku, Found: false, Error: NotFoundMessage}
}

func NewStoreFailureMarker(sku string) NotFoundMarker {
	return NotFoundMarker{SKU: sku, Found: false, Error: StoreFailureMessage, Code: StoreFailureCode}
}

// LookupResult is one batch entry: a record, a not-found marker, or a
// store-failure marker when Err is set.
type LookupResult struct {
	SKU    string
	Record *ProductRecord
	Err    error
}

func (r LookupResult) Found() bool {
	return r.Record != nil && r.Err == nil
}

func (r LookupResult) Failed() bool {
	return r.Err != nil
}

func (r LookupResult) Marker() NotFoundMarker {
	if r.Err != nil {
		return NewStoreFailureMarker(r.SKU)
	}
	return NewNotFoundMarker(r.SKU)
}

func (r LookupResult) MarshalJSON() ([]byte, error) {
	if r.Found() {
		return json.Marshal(r.Record)
	}
	return json.Marshal(r.Marker())
}

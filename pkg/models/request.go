package models

// Sort orders supported by the inventory query engine.
const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortYearAsc   = "year_asc"
	SortYearDesc  = "year_desc"
	SortModelAsc  = "model_asc"
	SortModelDesc = "model_desc"
)

// QueryCriteria filters, sorts and paginates a snapshot.
// Zero values impose no constraint.
type QueryCriteria struct {
	Model    string `json:"model,omitempty" validate:"omitempty,max=100,safe_text"`
	Year     int    `json:"year,omitempty" validate:"omitempty,min=1886,max=2100"`
	PriceMin int    `json:"priceMin,omitempty" validate:"omitempty,min=0"`
	PriceMax int    `json:"priceMax,omitempty" validate:"omitempty,min=0"`
	Search   string `json:"search,omitempty" validate:"omitempty,max=200,safe_text"`
	Page     int    `json:"page" validate:"min=1"`
	PerPage  int    `json:"perPage" validate:"min=1"`
	Sort     string `json:"sort,omitempty" validate:"omitempty,sort_key,oneof=price_asc price_desc year_asc year_desc model_asc model_desc"`
}

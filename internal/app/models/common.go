package models

// WebResponse is the envelope every handler returns. Data carries the
// resource payload; Success mirrors the HTTP outcome for clients that only
// look at the body.
type WebResponse[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// PaginationRequest is parsed from query parameters on list endpoints such as
// member transaction history.
type PaginationRequest struct {
	Page       int    `json:"page" validate:"omitempty,min=1"`
	Limit      int    `json:"limit" validate:"omitempty,min=1"`
	Order      string `json:"order" validate:"omitempty,oneof=asc desc"`
	OrderField string `json:"order_field" validate:"omitempty"`
}

// Pagination wraps one page of a listing. Transaction history and payout
// listings grow without bound, so everything list-shaped goes through this.
type Pagination[T any] struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"total_pages"`
	TotalItems int  `json:"total_items"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
	Items      T    `json:"items"`
}

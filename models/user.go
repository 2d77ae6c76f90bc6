package models

// User is an account declared in the catalog file.
type User struct {
	Username     string `json:"username" yaml:"username"`
	Role         string `json:"role" yaml:"role"`
	PasswordHash string `json:"-" yaml:"password_hash"`
}

// PaginationInfo holds metadata for paginated responses.
type PaginationInfo struct {
	TotalItems  int `json:"totalItems"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
}

// PaginatedSalesResponse for sales history.
type PaginatedSalesResponse struct {
	Items      []SaleRecord    `json:"items"`
	Pagination *PaginationInfo `json:"pagination"`
}

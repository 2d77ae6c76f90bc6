package utils

import (
	"math"

	"github.com/cakeworks/cake-sales/models"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// CreatePagination creates a PaginationInfo object.
func CreatePagination(totalItems, page, pageSize int) *models.PaginationInfo {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}

	totalPages := int(math.Ceil(float64(totalItems) / float64(pageSize)))

	return &models.PaginationInfo{
		TotalItems:  totalItems,
		CurrentPage: page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
	}
}

// PageBounds returns the slice bounds of the current page, clamped to totalItems.
func PageBounds(p *models.PaginationInfo) (start, end int) {
	start = (p.CurrentPage - 1) * p.PageSize
	if start > p.TotalItems {
		start = p.TotalItems
	}
	end = start + p.PageSize
	if end > p.TotalItems {
		end = p.TotalItems
	}
	return start, end
}

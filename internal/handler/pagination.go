package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// pageParams reads the page/limit query parameters and normalizes them:
// page is at least 1, limit falls back to the default and is capped.
func pageParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// PaginationMeta describes the page window of a list response.
type PaginationMeta struct {
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
}

// PaginatedResponse wraps one page of results with its window metadata.
type PaginatedResponse[T any] struct {
	Data []T            `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

// NewPaginatedResponse builds the response envelope around an
// already-fetched page.
func NewPaginatedResponse[T any](data []T, total int64, page, limit int) PaginatedResponse[T] {
	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}
	return PaginatedResponse[T]{
		Data: data,
		Meta: PaginationMeta{
			Total:      total,
			TotalPages: pages,
			Page:       page,
			PageSize:   limit,
		},
	}
}

// Paginate counts the query's full result set, fetches one page of it
// and wraps both in a response envelope.
func Paginate[T any](db *gorm.DB, page, limit int) (*PaginatedResponse[T], error) {
	var total int64
	if err := db.Model(new(T)).Count(&total).Error; err != nil {
		return nil, err
	}

	var results []T
	if err := db.Offset((page - 1) * limit).Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}

	response := NewPaginatedResponse(results, total, page, limit)
	return &response, nil
}

package domain

import "github.com/utafrali/critiqo/pkg/pagination"

// Entity is anything a list view can hold.
type Entity interface {
	EntityID() string
}

// ListResult is one normalized page of a remote collection.
type ListResult[T any] struct {
	Items       []T `json:"items"`
	TotalCount  int `json:"totalCount"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
}

// NewListResult derives TotalPages from totalCount and perPage.
func NewListResult[T any](items []T, totalCount, currentPage, perPage int) ListResult[T] {
	if items == nil {
		items = []T{}
	}
	if totalCount < 0 {
		totalCount = 0
	}
	if currentPage < 1 {
		currentPage = 1
	}
	return ListResult[T]{
		Items:       items,
		TotalCount:  totalCount,
		TotalPages:  pagination.TotalPages(totalCount, perPage),
		CurrentPage: currentPage,
	}
}

// EmptyList is the result shown when nothing could be loaded.
func EmptyList[T any]() ListResult[T] {
	return ListResult[T]{Items: []T{}, TotalPages: 1, CurrentPage: 1}
}

// Clone returns a copy whose Items can be modified independently.
func (l ListResult[T]) Clone() ListResult[T] {
	items := make([]T, len(l.Items))
	copy(items, l.Items)
	l.Items = items
	return l
}

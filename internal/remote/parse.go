package remote

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/utafrali/critiqo/internal/domain"
)

// Items keys tried before "data".
const (
	KeyReviews = "reviews"
	KeyUsers   = "users"
	KeyData    = "data"
)

type listMeta struct {
	Total *int `json:"total"`
	Page  *int `json:"page"`
}

// ParseReviewList normalizes a GET /reviews body. See parseList for the
// accepted shapes.
func ParseReviewList(body []byte, requestedPage, limit int) (domain.ListResult[domain.Review], error) {
	return parseList[domain.Review](body, KeyReviews, requestedPage, limit)
}

// ParseUserList normalizes a GET /users body.
func ParseUserList(body []byte, requestedPage, limit int) (domain.ListResult[domain.User], error) {
	return parseList[domain.User](body, KeyUsers, requestedPage, limit)
}

// parseList accepts, in order of precedence:
//
//	{"<itemsKey>": [...]}  then  {"data": [...]}  then  [...]
//
// The total comes from meta.total, then total, else 0. The current page comes
// from meta.page, else requestedPage. JSON null counts as absent. An object
// carrying neither items key is rejected.
func parseList[T any](body []byte, itemsKey string, requestedPage, limit int) (domain.ListResult[T], error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return domain.ListResult[T]{}, &ParseError{Reason: "empty body", Body: string(body)}
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return domain.ListResult[T]{}, &ParseError{Reason: fmt.Sprintf("decode items: %v", err), Body: string(body)}
		}
		return domain.NewListResult(items, 0, requestedPage, limit), nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return domain.ListResult[T]{}, &ParseError{Reason: fmt.Sprintf("decode envelope: %v", err), Body: string(body)}
	}

	rawItems, key := present(envelope, itemsKey, KeyData)
	if rawItems == nil {
		return domain.ListResult[T]{}, &ParseError{
			Reason: fmt.Sprintf("no %q or %q array in response", itemsKey, KeyData),
			Body:   string(body),
		}
	}

	var items []T
	if err := json.Unmarshal(rawItems, &items); err != nil {
		return domain.ListResult[T]{}, &ParseError{Reason: fmt.Sprintf("decode %s: %v", key, err), Body: string(body)}
	}

	var meta listMeta
	if raw, _ := present(envelope, "meta"); raw != nil {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return domain.ListResult[T]{}, &ParseError{Reason: fmt.Sprintf("decode meta: %v", err), Body: string(body)}
		}
	}

	total := 0
	switch {
	case meta.Total != nil:
		total = *meta.Total
	default:
		if raw, _ := present(envelope, "total"); raw != nil {
			if err := json.Unmarshal(raw, &total); err != nil {
				return domain.ListResult[T]{}, &ParseError{Reason: fmt.Sprintf("decode total: %v", err), Body: string(body)}
			}
		}
	}

	page := requestedPage
	if meta.Page != nil && *meta.Page > 0 {
		page = *meta.Page
	}

	return domain.NewListResult(items, total, page, limit), nil
}

// present returns the first key whose value is not JSON null.
func present(envelope map[string]json.RawMessage, keys ...string) (json.RawMessage, string) {
	for _, k := range keys {
		raw, ok := envelope[k]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		return raw, k
	}
	return nil, ""
}

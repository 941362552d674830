// Package apitest is an in-memory stand-in for the review portal API used by
// tests across the module.
package apitest

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/critiqo/internal/domain"
	apperrors "github.com/utafrali/critiqo/pkg/errors"
	"github.com/utafrali/critiqo/pkg/httputil"
	"github.com/utafrali/critiqo/pkg/middleware"
	"github.com/utafrali/critiqo/pkg/pagination"
	"github.com/utafrali/critiqo/pkg/validator"
)

// Shape selects the envelope GET /reviews and GET /users respond with.
type Shape int

const (
	// ShapeNamed is {"reviews"|"users": [...], "meta": {"total", "page"}}.
	ShapeNamed Shape = iota
	// ShapeData is {"data": [...], "total": n}.
	ShapeData
	// ShapeBare is a bare JSON array.
	ShapeBare
)

// Fault is a canned failure returned instead of the normal response.
type Fault struct {
	Status int
	Body   string
}

// Portal is a fake portal API. The zero value is not usable; call New.
type Portal struct {
	mu       sync.Mutex
	reviews  []domain.Review
	users    []domain.User
	shape    Shape
	faults   map[string][]Fault
	reject   map[string]string
	requests []*http.Request
	updates  []map[string]any
	now      func() time.Time
}

// New creates an empty portal.
func New() *Portal {
	return &Portal{
		faults: make(map[string][]Fault),
		reject: make(map[string]string),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithReviews seeds the review collection.
func (p *Portal) WithReviews(reviews ...domain.Review) *Portal {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reviews = append(p.reviews, reviews...)
	return p
}

// WithUsers seeds the user collection.
func (p *Portal) WithUsers(users ...domain.User) *Portal {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, users...)
	return p
}

// WithShape switches the list envelope.
func (p *Portal) WithShape(s Shape) *Portal {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shape = s
	return p
}

// FailNext queues a fault for the next request matching route, e.g.
// "GET /reviews" or "PATCH /reviews/{id}".
func (p *Portal) FailNext(route string, f Fault) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.faults[route] = append(p.faults[route], f)
}

// RejectNext makes the next mutation of route answer 200 {"success":false}.
func (p *Portal) RejectNext(route, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reject[route] = message
}

// Requests returns every request received, oldest first.
func (p *Portal) Requests() []*http.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*http.Request(nil), p.requests...)
}

// Count returns how many requests matched method and path prefix.
func (p *Portal) Count(method, pathPrefix string) int {
	n := 0
	for _, r := range p.Requests() {
		if r.Method == method && strings.HasPrefix(r.URL.Path, pathPrefix) {
			n++
		}
	}
	return n
}

// Updates returns every decoded PATCH body, oldest first.
func (p *Portal) Updates() []map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]map[string]any(nil), p.updates...)
}

// Review returns the stored review with id.
func (p *Portal) Review(id string) (domain.Review, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.reviews {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Review{}, false
}

// UserCount returns the number of stored users.
func (p *Portal) UserCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.users)
}

// Start serves the portal over httptest; the server is closed on cleanup.
func (p *Portal) Start(t testing.TB) *httptest.Server {
	srv := httptest.NewServer(p.Router())
	t.Cleanup(srv.Close)
	return srv
}

// Router returns the chi router implementing the portal endpoints.
func (p *Portal) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(slog.Default()))
	r.Use(p.record)

	r.Get("/reviews", p.listReviews)
	r.Patch("/reviews/{id}", p.updateReview)
	r.Get("/users", p.listUsers)
	r.Delete("/users/{id}", p.deleteUser)
	return r
}

func (p *Portal) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.requests = append(p.requests, r.Clone(r.Context()))
		p.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// fault pops a queued fault for route and writes it.
func (p *Portal) fault(w http.ResponseWriter, route string) bool {
	p.mu.Lock()
	queue := p.faults[route]
	if len(queue) == 0 {
		p.mu.Unlock()
		return false
	}
	f := queue[0]
	p.faults[route] = queue[1:]
	p.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(f.Status)
	_, _ = w.Write([]byte(f.Body))
	return true
}

func (p *Portal) rejected(w http.ResponseWriter, route string) bool {
	p.mu.Lock()
	msg, ok := p.reject[route]
	delete(p.reject, route)
	p.mu.Unlock()
	if !ok {
		return false
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Success: false, Message: msg})
	return true
}

func (p *Portal) listReviews(w http.ResponseWriter, r *http.Request) {
	if p.fault(w, "GET /reviews") {
		return
	}
	params := pagination.FromRequest(r)
	status := r.URL.Query().Get("status")
	title := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("title")))

	p.mu.Lock()
	matched := make([]domain.Review, 0, len(p.reviews))
	for _, rv := range p.reviews {
		if status != "" && string(rv.Status) != status {
			continue
		}
		if title != "" && !strings.Contains(strings.ToLower(rv.Title), title) {
			continue
		}
		matched = append(matched, rv)
	}
	shape := p.shape
	p.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	page := pagination.Slice(matched, params.Page, params.Limit)
	writeList(w, shape, "reviews", page, len(matched), params.Page)
}

func (p *Portal) listUsers(w http.ResponseWriter, r *http.Request) {
	if p.fault(w, "GET /users") {
		return
	}
	p.mu.Lock()
	users := append([]domain.User{}, p.users...)
	shape := p.shape
	p.mu.Unlock()
	writeList(w, shape, "users", users, len(users), 1)
}

func writeList[T any](w http.ResponseWriter, shape Shape, key string, items []T, total, page int) {
	switch shape {
	case ShapeBare:
		httputil.WriteJSON(w, http.StatusOK, items)
	case ShapeData:
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"data": items, "total": total})
	default:
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			key:    items,
			"meta": map[string]int{"total": total, "page": page},
		})
	}
}

type updateBody struct {
	Status         *string  `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED UNPUBLISHED"`
	IsPremium      *bool    `json:"isPremium"`
	PremiumPrice   *float64 `json:"premiumPrice" validate:"omitempty,gt=0"`
	ModerationNote string   `json:"moderationNote" validate:"required"`
}

func (p *Portal) updateReview(w http.ResponseWriter, r *http.Request) {
	const route = "PATCH /reviews/{id}"
	if p.fault(w, route) || p.rejected(w, route) {
		return
	}

	var body updateBody
	if err := validator.DecodeAndValidate(r, &body); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.reviews {
		if p.reviews[i].ID != id {
			continue
		}
		rv := &p.reviews[i]
		if body.Status != nil {
			rv.Status = domain.ReviewStatus(*body.Status)
		}
		if body.IsPremium != nil {
			rv.IsPremium = *body.IsPremium
			rv.PremiumPrice = nil
			if rv.IsPremium {
				rv.PremiumPrice = body.PremiumPrice
			}
		}
		rv.UpdatedAt = p.now()
		p.updates = append(p.updates, updateMap(body))
		httputil.WriteAck(w, "Review updated successfully")
		return
	}
	httputil.WriteError(w, r, apperrors.NotFound("review", id), nil)
}

func updateMap(b updateBody) map[string]any {
	m := map[string]any{"moderationNote": b.ModerationNote}
	if b.Status != nil {
		m["status"] = *b.Status
	}
	if b.IsPremium != nil {
		m["isPremium"] = *b.IsPremium
	}
	if b.PremiumPrice != nil {
		m["premiumPrice"] = *b.PremiumPrice
	}
	return m
}

func (p *Portal) deleteUser(w http.ResponseWriter, r *http.Request) {
	const route = "DELETE /users/{id}"
	if p.fault(w, route) || p.rejected(w, route) {
		return
	}

	id := chi.URLParam(r, "id")
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, u := range p.users {
		if u.ID != id {
			continue
		}
		if u.IsAdmin() {
			httputil.WriteError(w, r, apperrors.Forbidden("admin accounts cannot be deleted"), nil)
			return
		}
		p.users = append(p.users[:i], p.users[i+1:]...)
		httputil.WriteAck(w, "User deleted successfully")
		return
	}
	httputil.WriteError(w, r, apperrors.NotFound("user", id), nil)
}

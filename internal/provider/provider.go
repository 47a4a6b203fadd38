// Package provider defines the narrow contract search sources must satisfy.
// Network implementations (Torznab XML, RSS feeds, HTML scrapers) live behind
// the Source interface; the matching engine only consumes their normalized
// candidate lists.
package provider

import (
	"context"
	"sync"

	"bookarr/internal/domain"
)

// Category groups sources by transport family.
type Category string

const (
	CategoryNZB     Category = "nzb"
	CategoryTorrent Category = "torrent"
	CategoryDirect  Category = "direct"
	CategoryRSS     Category = "rss"
)

// Categories lists every category in search order.
func Categories() []Category {
	return []Category{CategoryNZB, CategoryTorrent, CategoryDirect, CategoryRSS}
}

// Source is one configured search provider.
type Source interface {
	Name() string
	Category() Category
	// Priority is the user-configured precedence among equally good matches.
	Priority() int
	Search(ctx context.Context, phrase string) ([]domain.CandidateResult, error)
}

// Registry holds the enabled sources, grouped by category.
type Registry struct {
	mu      sync.RWMutex
	sources []Source
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, s)
}

// ByCategory returns the enabled sources for one category.
func (r *Registry) ByCategory(c Category) []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Source
	for _, s := range r.sources {
		if s.Category() == c {
			out = append(out, s)
		}
	}
	return out
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/exp/maps"
)

type Episode struct {
	Season  int    `json:"season"`
	Episode int    `json:"episode"`
	URL     string `json:"url"`
}

type Series struct {
	Name     string    `json:"nome"`
	URL      string    `json:"url"`
	Seasons  int       `json:"temporadas"`
	Episodes []Episode `json:"episodios"`
}

type Film struct {
	ID          string `json:"id"`
	Name        string `json:"nome"`
	Poster      string `json:"poster"`
	Category    string `json:"categoria"`
	Subcategory string `json:"subcategoria"`
	URL         string `json:"url"`
	CreatedAt   string `json:"criado_em"`
}

type Category struct {
	Series []Series `json:"series"`
	Films  []Film   `json:"filmes"`
}

type Catalogue struct {
	Total       int                 `json:"totalRegistros"`
	GeneratedAt string              `json:"totalGerado"`
	Contents    map[string]Category `json:"contents"`
}

type ContentKind string

const (
	ContentFilm   ContentKind = "film"
	ContentSeries ContentKind = "series"
)

type SearchResult struct {
	Kind     ContentKind
	Category string
	Name     string
	URL      string
}

// Search matches names case-insensitively. Films come before series, each
// group ordered by category name.
func (c *Catalogue) Search(query string) []SearchResult {
	query = strings.ToLower(strings.TrimSpace(query))

	categories := maps.Keys(c.Contents)
	sort.Strings(categories)

	var films, series []SearchResult
	for _, name := range categories {
		cat := c.Contents[name]
		for _, f := range cat.Films {
			if strings.Contains(strings.ToLower(f.Name), query) {
				films = append(films, SearchResult{Kind: ContentFilm, Category: name, Name: f.Name, URL: f.URL})
			}
		}
		for _, s := range cat.Series {
			if strings.Contains(strings.ToLower(s.Name), query) {
				series = append(series, SearchResult{Kind: ContentSeries, Category: name, Name: s.Name, URL: s.URL})
			}
		}
	}

	return append(films, series...)
}

type catalogueCache struct {
	ttl   time.Duration
	clock clock.Clock

	mu        sync.Mutex
	value     *Catalogue
	fetchedAt time.Time
}

func (cc *catalogueCache) get() (*Catalogue, bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if cc.value == nil || cc.clock.Since(cc.fetchedAt) >= cc.ttl {
		return nil, false
	}
	return cc.value, true
}

func (cc *catalogueCache) put(c *Catalogue) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	cc.value = c
	cc.fetchedAt = cc.clock.Now()
}

// Catalogue returns the contents catalogue, served from memory while fresh.
func (c *Client) Catalogue(ctx context.Context) (*Catalogue, error) {
	if cached, ok := c.catalogue.get(); ok {
		return cached, nil
	}

	var cat Catalogue
	if err := c.do(ctx, http.MethodGet, c.catalogueURL, nil, &cat); err != nil {
		return nil, fmt.Errorf("failed to fetch catalogue: %w", err)
	}
	if cat.Contents == nil {
		cat.Contents = map[string]Category{}
	}

	c.catalogue.put(&cat)

	return &cat, nil
}

package middleware

import (
	"net/http"

	"github.com/18061718791/AITestCraft-sub000/internal/hierarchyloader"
	"github.com/18061718791/AITestCraft-sub000/internal/repository"
)

// HierarchyLoaders attaches fresh hierarchy name loaders to each request, so
// listings resolve names in batches and never share a cache across requests.
func HierarchyLoaders(store repository.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loaders := hierarchyloader.New(store.Repos())
			ctx := hierarchyloader.WithLoaders(r.Context(), loaders)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

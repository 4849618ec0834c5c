package auth

import (
	"sort"
	"strings"

	"github.com/tableflow/order-service/internal/domain"
)

type routeEntry struct {
	prefix      string
	requirement RouteRequirement
}

// RouteTable holds the static access declarations of the UI routes.
type RouteTable struct {
	entries []routeEntry
}

// NewRouteTable builds a table; the longest matching prefix wins.
func NewRouteTable(routes map[string]RouteRequirement) *RouteTable {
	entries := make([]routeEntry, 0, len(routes))
	for prefix, req := range routes {
		entries = append(entries, routeEntry{prefix: normalizePath(prefix), requirement: req})
	}
	sort.Slice(entries, func(i, j int) bool {
		return len(entries[i].prefix) > len(entries[j].prefix)
	})
	return &RouteTable{entries: entries}
}

// DefaultRouteTable declares the application's UI routes.
func DefaultRouteTable() *RouteTable {
	return NewRouteTable(map[string]RouteRequirement{
		"/":                PublicRoute(),
		"/login":           PublicRoute(),
		"/signup":          PublicRoute(),
		"/forgot-password": PublicRoute(),
		"/profile":         AuthenticatedRoute(),
		"/orders":          AuthenticatedRoute(),
		"/admin":           RolesRoute(domain.RoleAdmin),
		"/manager":         RolesRoute(domain.RoleManager),
		"/seller":          RolesRoute(domain.RoleSeller),
		"/delivery":        RolesRoute(domain.RoleDelivery),
		"/customer":        RolesRoute(domain.RoleCustomer),
		"/orders/new":      RolesRoute(domain.RoleCustomer, domain.RoleSeller),
		"/invoices":        RolesRoute(domain.RoleAdmin, domain.RoleManager, domain.RoleSeller),
	})
}

// Lookup finds the requirement declared for path.
func (t *RouteTable) Lookup(path string) (RouteRequirement, bool) {
	path = normalizePath(path)
	for _, entry := range t.entries {
		if entry.prefix == "/" {
			if path == "/" {
				return entry.requirement, true
			}
			continue
		}
		if path == entry.prefix || strings.HasPrefix(path, entry.prefix+"/") {
			return entry.requirement, true
		}
	}
	return RouteRequirement{}, false
}

func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = "/" + strings.Trim(strings.TrimSpace(path), "/")
	return path
}

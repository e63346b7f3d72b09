package validation

import (
	"fmt"
	"sort"
	"strings"
)

// Registry maps a route identifier (method + path pattern) to its input
// schema. It is populated during startup and read-only afterwards, so it is
// safe for unrestricted parallel access.
type Registry struct {
	sanitizer *Sanitizer
	schemas   map[string]*Schema
}

func NewRegistry() *Registry {
	return &Registry{
		sanitizer: NewSanitizer(),
		schemas:   make(map[string]*Schema),
	}
}

func routeKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// Register binds a schema to a route. Registering the same route twice is a
// programming error and panics at startup.
func (r *Registry) Register(method, path string, schema *Schema) {
	key := routeKey(method, path)
	if _, exists := r.schemas[key]; exists {
		panic(fmt.Sprintf("validation: schema already registered for %s", key))
	}
	r.schemas[key] = schema
}

// Lookup returns the schema for a route, if one is registered.
func (r *Registry) Lookup(method, path string) (*Schema, bool) {
	schema, ok := r.schemas[routeKey(method, path)]
	return schema, ok
}

// Sanitizer exposes the shared sanitizer for callers that validate through
// the registry.
func (r *Registry) Sanitizer() *Sanitizer {
	return r.sanitizer
}

// DeclaredRoute names a body-carrying protected route that must have a schema.
type DeclaredRoute struct {
	Method string
	Path   string
}

// EnsureRegistered verifies at startup that every declared body-carrying
// route has a schema, so an unmapped route is a boot error rather than a
// silent validation bypass.
func (r *Registry) EnsureRegistered(routes []DeclaredRoute) error {
	var missing []string
	for _, route := range routes {
		if _, ok := r.schemas[routeKey(route.Method, route.Path)]; !ok {
			missing = append(missing, routeKey(route.Method, route.Path))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("validation: no schema registered for routes: %s", strings.Join(missing, ", "))
	}
	return nil
}

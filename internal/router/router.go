package router

// Rule routes paths to one backend.
type Rule struct {
	Backend  string
	Prefixes []string
	Keywords []string
}

type route struct {
	backend  string
	matchers []PathMatcher
}

// Router resolves paths to backend names. It is immutable after New and
// safe for concurrent use.
type Router struct {
	routes         []route
	defaultBackend string
}

// New builds a router from rules, evaluated in the given order. Empty
// prefixes and keywords are ignored since they would match every path.
func New(rules []Rule, defaultBackend string) *Router {
	r := &Router{
		routes:         make([]route, 0, len(rules)),
		defaultBackend: defaultBackend,
	}
	for _, rule := range rules {
		rt := route{backend: rule.Backend}
		for _, p := range rule.Prefixes {
			if p != "" {
				rt.matchers = append(rt.matchers, NewPrefixMatcher(p))
			}
		}
		for _, k := range rule.Keywords {
			if k != "" {
				rt.matchers = append(rt.matchers, NewKeywordMatcher(k))
			}
		}
		r.routes = append(r.routes, rt)
	}
	return r
}

// Resolve returns the backend for path. It never fails: unmatched paths go
// to the default backend.
func (r *Router) Resolve(path string) string {
	for _, rt := range r.routes {
		for _, m := range rt.matchers {
			if m.Match(path) {
				return rt.backend
			}
		}
	}
	return r.defaultBackend
}

// DefaultBackend returns the fallback backend name.
func (r *Router) DefaultBackend() string { return r.defaultBackend }

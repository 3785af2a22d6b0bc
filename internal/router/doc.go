// Package router maps a request path to the name of the backend that
// serves it.
//
// Rules are checked in order. A rule matches when the path starts with one
// of its prefixes or contains one of its keywords; the first matching rule
// wins and a path nothing matches goes to the default backend:
//
//	r := router.New([]router.Rule{
//	    {Backend: "user-service", Prefixes: []string{"/api/users"}, Keywords: []string{"user"}},
//	    {Backend: "product-service", Prefixes: []string{"/api/products"}, Keywords: []string{"product"}},
//	}, "user-service")
//
//	r.Resolve("/api/products/user-123") // "user-service"
package router

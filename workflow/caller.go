package workflow

import "net/http"

// Caller is the identity a request is made on behalf of.
// It is resolved by an external authentication layer.
type Caller struct {
	User   string
	Groups []string

	// SuperUser callers may process with any method and view any instance.
	SuperUser bool

	// Internal callers (system jobs) bypass creation permission checks.
	Internal bool
}

// InternalCaller returns the caller used by system jobs.
func InternalCaller() *Caller {
	return &Caller{User: "internal", SuperUser: true, Internal: true}
}

// MemberOfAny reports whether c belongs to any of groups.
func (c *Caller) MemberOfAny(groups []string) bool {
	if c == nil {
		return false
	}
	for _, g := range c.Groups {
		for _, h := range groups {
			if g == h {
				return true
			}
		}
	}
	return false
}

// WriteMethod reports whether method is a write-style request method.
func WriteMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

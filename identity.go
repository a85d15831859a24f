package tracereg

import "strings"

// defaultTracerName is the fallback instrumentation name substituted when a
// caller requests a tracer with an empty name.
const defaultTracerName = "unknown"

// Scope is the instrumentation identity a Tracer handle is keyed by: the name
// of the library or component requesting the tracer, plus its version. The
// zero Version is valid and simply means "unversioned".
type Scope struct {
	Name    string
	Version string
}

// String returns "name" or "name@version".
func (s Scope) String() string {
	if len(s.Version) == 0 {
		return s.Name
	}
	return s.Name + "@" + s.Version
}

// Compare orders scopes lexicographically by name, then by version. It
// returns -1, 0 or +1 like strings.Compare.
func (s Scope) Compare(other Scope) int {
	if c := strings.Compare(s.Name, other.Name); c != 0 {
		return c
	}
	return strings.Compare(s.Version, other.Version)
}

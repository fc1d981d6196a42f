// Package version holds the build version of Veil.
package version

import "strings"

// Version is set using -ldflags "-X github.com/veilmc/veil/pkg/version.version=v1.2.3"
var version = "unknown"

// String returns the build version.
func String() string {
	return version
}

// UserAgent returns the identifier Veil reports to remote services.
func UserAgent() string {
	s := strings.Builder{}
	s.WriteString("Veil/")
	if v := String(); v != "" {
		s.WriteString(v)
	} else {
		s.WriteString("Dirty")
	}
	return s.String()
}

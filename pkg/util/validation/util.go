// Package validation checks user supplied addresses and names.
package validation

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
)

// ValidHostPort returns an error if hostAndPort is not a host:port address
// with a numeric port. Port 0 is valid for bind addresses.
func ValidHostPort(hostAndPort string) error {
	_, port, err := net.SplitHostPort(hostAndPort)
	if err != nil {
		return err
	}
	if _, err = strconv.ParseUint(port, 10, 16); err != nil {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}

// maxNameLength bounds module and setting names, they are used as
// document keys and typed in chat commands.
const maxNameLength = 63

// namePattern allows letters, digits, '-', '_' and '.', starting and ending with a letter or digit.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9]([-A-Za-z0-9_.]*[A-Za-z0-9])?$`)

// ValidName reports whether str can be used as a module or setting name.
func ValidName(str string) bool {
	return len(str) <= maxNameLength && namePattern.MatchString(str)
}

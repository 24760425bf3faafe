package audio

import (
	"errors"
	"fmt"
	"strings"
)

const maxNameLength = 255

// ValidateName accepts a bare file name in the audio directory: no separators,
// not "." or "..", no control bytes.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name cannot be empty")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name longer than %d bytes", maxNameLength)
	}
	if name == "." || name == ".." {
		return errors.New("path traversal detected")
	}
	if strings.ContainsAny(name, `/\`) {
		return errors.New("name must not contain path separators")
	}
	for _, r := range name {
		if r < 32 || r == 127 {
			return errors.New("invalid characters in name")
		}
	}
	return nil
}

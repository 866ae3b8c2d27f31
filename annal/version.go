package annal

import (
	"fmt"
	"strconv"
	"strings"
)

// SoftwareVersion is recorded in collection metadata on every write. A
// collection whose recorded version is greater than this cannot be loaded.
const SoftwareVersion = "0.5.18"

// CompareVersions compares two dotted-decimal version strings, returning
// -1, 0 or 1. Missing components compare as zero, so "0.5" == "0.5.0".
// Non-numeric components are an error.
func CompareVersions(a, b string) (int, error) {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		av, err := versionComponent(as, i)
		if err != nil {
			return 0, fmt.Errorf("bad version %q: %w", a, err)
		}
		bv, err := versionComponent(bs, i)
		if err != nil {
			return 0, fmt.Errorf("bad version %q: %w", b, err)
		}
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		}
	}
	return 0, nil
}

func versionComponent(parts []string, i int) (int, error) {
	if i >= len(parts) || parts[i] == "" {
		return 0, nil
	}
	return strconv.Atoi(parts[i])
}

package imagematch

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseRegion parses a "x,y,w,h" capture region.
func ParseRegion(s string) ([4]int, error) {
	var b [4]int
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return b, fmt.Errorf("invalid region %q: expected x,y,w,h", s)
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return b, fmt.Errorf("invalid region %q: %w", s, err)
		}
		b[i] = v
	}
	if b[2] <= 0 || b[3] <= 0 {
		return b, fmt.Errorf("invalid region %q: width and height must be positive", s)
	}
	return b, nil
}

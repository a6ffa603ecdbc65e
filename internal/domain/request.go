package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// ParseDimension reads a width or height as it arrives at the boundary: absent,
// a numeric string, or a JSON number. nil, "" and false are "not provided".
func ParseDimension(v any) (Dimension, error) {
	switch t := v.(type) {
	case nil:
		return Dimension{}, nil
	case Dimension:
		return t, nil
	case bool:
		if !t {
			return Dimension{}, nil
		}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return Dimension{}, nil
		}
		// Atoi rather than cast so "08" stays decimal
		n, err := strconv.Atoi(s)
		if err != nil {
			return Dimension{}, fmt.Errorf("invalid dimension %q", t)
		}
		return NewDimension(n), nil
	}

	n, err := cast.ToIntE(v)
	if err != nil {
		return Dimension{}, fmt.Errorf("invalid dimension %v: %w", v, err)
	}
	return NewDimension(n), nil
}

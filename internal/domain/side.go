package domain

import (
	"fmt"
	"strings"
)

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// ParseSide accepts LONG or SHORT in any letter case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideLong:
		return SideLong, nil
	case SideShort:
		return SideShort, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

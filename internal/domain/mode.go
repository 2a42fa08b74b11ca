package domain

import (
	"fmt"
	"strings"
)

// Mode is the site-wide write switch.
type Mode string

const (
	ModeSafe     Mode = "SAFE"
	ModeReadOnly Mode = "READ_ONLY"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case ModeSafe, ModeReadOnly:
		return m, nil
	}
	return "", fmt.Errorf("unknown system mode %q", s)
}

// AllowsWrites is false only for READ_ONLY.
func (m Mode) AllowsWrites() bool { return m != ModeReadOnly }

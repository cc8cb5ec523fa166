package domain

import (
	"fmt"
	"strings"
)

// Platform identifies one supported publishing destination.
type Platform string

const (
	PlatformDevTo     Platform = "devto"
	PlatformHashnode  Platform = "hashnode"
	PlatformGhost     Platform = "ghost"
	PlatformWordPress Platform = "wordpress"
	PlatformWix       Platform = "wix"
)

// Platforms lists every supported destination in a stable order.
func Platforms() []Platform {
	return []Platform{
		PlatformDevTo,
		PlatformHashnode,
		PlatformGhost,
		PlatformWordPress,
		PlatformWix,
	}
}

// ParsePlatform resolves a platform tag, rejecting anything outside the closed set.
func ParsePlatform(raw string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case PlatformDevTo, PlatformHashnode, PlatformGhost, PlatformWordPress, PlatformWix:
		return p, nil
	}
	return "", fmt.Errorf("unknown platform %q", raw)
}

func (p Platform) String() string { return string(p) }

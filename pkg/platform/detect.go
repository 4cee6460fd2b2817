// pkg/platform/detect.go
package platform

import (
	"fmt"
	"runtime"
	"strings"
)

// Any is the tag of platform-independent artifacts
const Any = "any"

// Platform represents the detected system platform
type Platform struct {
	OS   string // linux, darwin, windows
	Arch string // amd64, arm64, 386, arm
}

// Detect detects the current platform
func Detect() *Platform {
	return &Platform{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}
}

// Parse parses an "os/arch" tag
func Parse(tag string) (*Platform, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	goos, arch, ok := strings.Cut(tag, "/")
	if !ok || goos == "" || arch == "" {
		return nil, fmt.Errorf("invalid platform %q, expected os/arch", tag)
	}
	return &Platform{OS: goos, Arch: normalizeArch(arch)}, nil
}

// String returns the "os/arch" tag of the platform
func (p *Platform) String() string {
	return p.OS + "/" + p.Arch
}

// Matches reports whether an artifact tagged with tag can be installed on p
func (p *Platform) Matches(tag string) bool {
	if strings.EqualFold(tag, Any) {
		return true
	}
	other, err := Parse(tag)
	if err != nil {
		return false
	}
	return other.OS == p.OS && other.Arch == p.Arch
}

// Matches reports whether tag can be installed on the platform named plat
func Matches(plat, tag string) bool {
	p, err := Parse(plat)
	if err != nil {
		return strings.EqualFold(tag, Any)
	}
	return p.Matches(tag)
}

// normalizeArch maps common aliases onto GOARCH names
func normalizeArch(arch string) string {
	switch arch {
	case "x86_64", "x64":
		return "amd64"
	case "aarch64":
		return "arm64"
	case "i386", "i686", "x86":
		return "386"
	default:
		return arch
	}
}

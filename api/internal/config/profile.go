package config

import (
	"strings"
	"time"
)

// Profile is a coarse device-class bucket. It is resolved once at the call
// boundary and threaded through explicitly; nothing in the server inspects
// user agents.
type Profile string

const (
	ProfileDesktop           Profile = "desktop"
	ProfileMobile            Profile = "mobile"
	ProfileConstrainedMobile Profile = "constrained-mobile"
)

func ParseProfile(s string) Profile {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mobile":
		return ProfileMobile
	case "constrained-mobile", "constrained", "ios":
		return ProfileConstrainedMobile
	default:
		return ProfileDesktop
	}
}

// MaxWidth is the compression target width for the profile.
func (p Profile) MaxWidth() int {
	switch p {
	case ProfileConstrainedMobile:
		return 1024
	case ProfileMobile:
		return 1280
	default:
		return 1600
	}
}

// JPEGQuality is the re-encode quality for the profile, 1..100.
func (p Profile) JPEGQuality() int {
	switch p {
	case ProfileConstrainedMobile:
		return 70
	case ProfileMobile:
		return 80
	default:
		return 85
	}
}

// Timeout bounds a single estimate request. Slower device classes get more
// headroom, not less: their uplinks are the bottleneck.
func (p Profile) Timeout() time.Duration {
	switch p {
	case ProfileConstrainedMobile:
		return 60 * time.Second
	case ProfileMobile:
		return 45 * time.Second
	default:
		return 30 * time.Second
	}
}

// Guidance is the user-facing hint appended when every attempt failed.
func (p Profile) Guidance() string {
	switch p {
	case ProfileConstrainedMobile:
		return "try a smaller photo or switch to Wi-Fi before retrying"
	case ProfileMobile:
		return "check your connection and try again"
	default:
		return "check that the server is reachable and try again"
	}
}

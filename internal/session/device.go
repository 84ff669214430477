package session

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mssola/useragent"
)

// DeviceService derives stable device fingerprints from User-Agent strings.
// When disabled every comparison passes, so callers need no feature checks.
type DeviceService struct {
	enabled bool
}

func NewDeviceService(enabled bool) *DeviceService {
	return &DeviceService{enabled: enabled}
}

// ComputeFingerprint hashes the coarse device traits of a User-Agent. IP
// addresses are deliberately excluded; they are too volatile to bind to.
func (s *DeviceService) ComputeFingerprint(userAgentString string) string {
	if !s.enabled || userAgentString == "" {
		return ""
	}

	ua := useragent.New(userAgentString)
	browser, version := ua.Browser()

	majorVersion := "unknown"
	if version != "" {
		parts := strings.Split(version, ".")
		if len(parts) > 0 && parts[0] != "" {
			majorVersion = parts[0]
		}
	}

	os := ua.OS()
	platform := "desktop"
	if ua.Mobile() {
		platform = "mobile"
	}

	browser = strings.ToLower(strings.TrimSpace(browser))
	if browser == "" {
		browser = "unknown"
	}
	os = strings.ToLower(strings.TrimSpace(os))
	if os == "" {
		os = "unknown"
	}

	data := fmt.Sprintf("%s|%s|%s|%s", browser, majorVersion, os, platform)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// CompareFingerprints reports whether the stored and current fingerprints
// match, using constant-time comparison. Returns (matched, driftDetected).
func (s *DeviceService) CompareFingerprints(stored, current string) (matched bool, driftDetected bool) {
	if !s.enabled {
		return true, false
	}
	matched = subtle.ConstantTimeCompare([]byte(stored), []byte(current)) == 1
	driftDetected = !matched
	return matched, driftDetected
}

// ParseUserAgent extracts a display name such as "Chrome on macOS" from a
// User-Agent string.
func ParseUserAgent(userAgentString string) string {
	if userAgentString == "" {
		return "Unknown Device"
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()
	os := ua.OS()

	if ua.Mobile() {
		platform := ua.Platform()
		if platform != "" {
			return strings.TrimSpace(browser + " on " + platform)
		}
	}

	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + os
}

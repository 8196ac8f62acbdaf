package util

import (
	"fmt"
	"net/url"
	"strings"
)

// FormatBytes formats a byte count into a human-readable string.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// ShortRef shortens a chapter URL for display: the scheme and host are
// dropped and the rest is cut from the left to fit maxLen.
func ShortRef(ref string, maxLen int) string {
	if u, err := url.Parse(ref); err == nil && u.Host != "" {
		ref = u.EscapedPath()
		if u.RawQuery != "" {
			ref += "?" + u.RawQuery
		}
	}
	ref = strings.TrimSuffix(ref, "/")
	if ref == "" {
		ref = "/"
	}
	if maxLen <= 3 || len(ref) <= maxLen {
		return ref
	}
	return "..." + ref[len(ref)-maxLen+3:]
}

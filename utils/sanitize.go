package utils

import "github.com/microcosm-cc/bluemonday"

// Captions are plain text; strip all markup instead of allowing a UGC subset.
var captionPolicy = bluemonday.StrictPolicy()

// SanitizeCaption strips HTML from a user-supplied upload caption.
func SanitizeCaption(input string) string {
	return captionPolicy.Sanitize(input)
}

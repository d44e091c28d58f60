// Package youtube extracts video ids from the many shapes of YouTube links.
package youtube

import (
	"fmt"
	"regexp"
)

const idLength = 11

var linkPattern = regexp.MustCompile(`^.*((youtu.be/)|(v/)|(/u/\w/)|(embed/)|(watch\?))\??v?=?([^#&?]*).*`)

// ExtractID returns the 11 character video id in rawURL.
func ExtractID(rawURL string) (string, bool) {
	m := linkPattern.FindStringSubmatch(rawURL)
	if m == nil || len(m[7]) != idLength {
		return "", false
	}
	return m[7], true
}

func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

func ThumbnailURL(id string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", id)
}

// utils/file.go
package utils

import (
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// NoOrdinal is assigned to uploads whose name carries no usable number; it sorts last.
const NoOrdinal = math.MaxInt32

var ordinalPattern = regexp.MustCompile(`\d+`)

// Image extensions delivered as photo previews. Everything else is a download.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// ParseOrdinal returns the first run of digits in the file's base name,
// extension included, so "clip.mp4" is 4.
func ParseOrdinal(filename string) int {
	match := ordinalPattern.FindString(filepath.Base(filename))
	if match == "" {
		return NoOrdinal
	}
	n, err := strconv.ParseInt(match, 10, 32)
	if err != nil {
		return NoOrdinal
	}
	return int(n)
}

// IsImageFile classifies a file name by extension, case-insensitively.
func IsImageFile(filename string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}

// EnsureImageName makes sure a photo upload is classified as an image.
// Telegram photos carry no file name, so the caption (or "photo") is used.
func EnsureImageName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "photo"
	}
	if IsImageFile(name) {
		return name
	}
	return name + ".jpg"
}

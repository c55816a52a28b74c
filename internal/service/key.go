package service

import (
	"math/rand/v2"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const tokenLength = 6

// tokenSpace is 36^6, so every token renders as exactly six base-36 digits
const tokenSpace = 36 * 36 * 36 * 36 * 36 * 36

// NewKey builds a storage key of the form {epoch-millis}-{token}.{ext}.
// Keys are unique with overwhelming probability, not by construction.
func NewKey(now time.Time, token, fileName string) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + token + "." + extension(fileName)
}

// RandomToken returns a random base-36 token of fixed length
func RandomToken() string {
	n := rand.Uint64N(tokenSpace)
	s := strconv.FormatUint(n, 36)
	return strings.Repeat("0", tokenLength-len(s)) + s
}

// extension is the text after the last dot, or the whole name when there is none
func extension(fileName string) string {
	if i := strings.LastIndexByte(fileName, '.'); i >= 0 {
		return fileName[i+1:]
	}
	return fileName
}

// KeyFromURL derives the storage key from a public URL: the decoded last path
// segment, with query and fragment ignored. Input that does not parse as a URL
// falls back to the text after the last slash.
func KeyFromURL(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return lastSegment(u.Path)
	}
	return lastSegment(rawURL)
}

func lastSegment(p string) string {
	return p[strings.LastIndexByte(p, '/')+1:]
}

package handler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/sevigo/resizer/internal/core"
)

// ParseParams reads width and height from the query string. A missing or
// unparseable value falls back to the matching default.
func ParseParams(query url.Values, defaults core.Params) core.Params {
	return core.Params{
		Width:  parseDimension(query.Get("width"), defaults.Width),
		Height: parseDimension(query.Get("height"), defaults.Height),
	}
}

func parseDimension(raw string, fallback uint16) uint16 {
	if raw == "" {
		return fallback
	}
	// A single leading plus sign is accepted, as in "+50".
	v, err := strconv.ParseUint(strings.TrimPrefix(raw, "+"), 10, 16)
	if err != nil {
		return fallback
	}
	return uint16(v)
}

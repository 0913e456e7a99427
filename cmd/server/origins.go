package main

import (
	"net/url"
	"slices"
)

// originPatterns turns allowed origins into websocket host patterns.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		if !slices.Contains(out, o) {
			out = append(out, o)
		}
	}
	return out
}

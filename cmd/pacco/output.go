package main

import (
	"strings"

	"github.com/pacco-io/pacco/props"
)

// The list renderings below are a compatibility contract: existing tooling
// parses this exact format, including the empty-list form "[]" and the
// 0-or-1-element list for the optional default remote.

func renderNames(names []string) string {
	if len(names) == 0 {
		return "[]"
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func renderKeys(keys []props.Key) string {
	if len(keys) == 0 {
		return "[]"
	}
	rendered := make([]string, len(keys))
	for i, k := range keys {
		rendered[i] = renderKey(k)
	}
	return "[" + strings.Join(rendered, ", ") + "]"
}

// renderKey shows one canonical mapping with keys in alphabetical order
// (which is the order the pairs already carry).
func renderKey(k props.Key) string {
	pairs := make([]string, len(k))
	for i, p := range k {
		pairs[i] = "'" + p.Name + "': '" + p.Value + "'"
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

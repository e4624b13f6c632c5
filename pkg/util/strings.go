package util

import "strings"

// RemoveDuplicateStrings keeps the first occurrence of every non-blank value in order, skipping
// anything in ignoreList. Values are compared after trimming surrounding whitespace.
func RemoveDuplicateStrings(values []string, ignoreList []string) []string {
	seen := make(map[string]struct{}, len(values)+len(ignoreList))
	for _, ignored := range ignoreList {
		seen[ignored] = struct{}{}
	}

	var list []string
	for _, item := range values {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		if _, exists := seen[item]; exists {
			continue
		}
		seen[item] = struct{}{}

		list = append(list, item)
	}

	return list
}

// TrimString shortens s to at most length runes
func TrimString(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}

	return string(runes[:length])
}

package slice

import "strings"

// Contains checks if a string exists in a string slice
func Contains(slice []string, str string) bool {
	for _, item := range slice {
		if item == str {
			return true
		}
	}
	return false
}

// ContainsFold is Contains ignoring case and surrounding space.
func ContainsFold(slice []string, str string) bool {
	str = strings.TrimSpace(str)
	for _, item := range slice {
		if strings.EqualFold(strings.TrimSpace(item), str) {
			return true
		}
	}
	return false
}

// Unique returns the non-empty trimmed items of slice in first-seen order.
func Unique(slice []string) []string {
	seen := make(map[string]bool, len(slice))
	out := make([]string, 0, len(slice))
	for _, item := range slice {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

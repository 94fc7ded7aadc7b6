package models

import "strings"

// LatestTag is the conventional version tag Ollama clients append to model names.
const LatestTag = ":latest"

// StripTag removes trailing ":latest" tags from a model identifier.
// Any other tag (e.g. ":135m") is part of the name and is kept.
func StripTag(name string) string {
	for strings.HasSuffix(name, LatestTag) {
		name = strings.TrimSuffix(name, LatestTag)
	}
	return name
}

// Matches reports whether two identifiers name the same model, ignoring
// the ":latest" tag on either side.
func Matches(a, b string) bool {
	return a == b || StripTag(a) == StripTag(b)
}

// Contains reports whether name matches any entry of list.
func Contains(list []string, name string) bool {
	for _, entry := range list {
		if Matches(name, entry) {
			return true
		}
	}
	return false
}

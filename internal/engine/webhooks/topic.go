package webhooks

import "strings"

// TopicMatches reports whether a hook's topic pattern covers a concrete
// topic. Patterns match exactly, except that a trailing "*" segment matches
// any suffix, so "https://app.example.com/v2/hooks/137/locks/*" covers every
// lock topic on that network.
func TopicMatches(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		return strings.HasPrefix(topic, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

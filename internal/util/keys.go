package util

// MemoKey builds the provider storage key for an artifact's memo entry,
// isolated by namespace. The "artifact:" prefix is owned by arrowbridge;
// external code must not write under it.
func MemoKey(namespace, contentKey string) string {
	return "artifact:" + namespace + ":" + contentKey
}

// Short truncates a content key for log lines. Full 64-char digests drown
// everything around them; 12 hex chars keep collisions implausible in any
// one log stream.
func Short(key string) string {
	if len(key) <= 12 {
		return key
	}
	return key[:12]
}

package conversation

// Merge appends the agent utterances of batch whose content is not already in
// the log. Content comparison is exact: case-sensitive and untrimmed.
// existing is never modified.
func Merge(existing, batch []Utterance) []Utterance {
	seen := make(map[string]struct{}, len(existing)+len(batch))
	for _, u := range existing {
		seen[u.Content] = struct{}{}
	}

	merged := make([]Utterance, len(existing), len(existing)+len(batch))
	copy(merged, existing)
	for _, u := range batch {
		if u.Role != RoleAgent {
			continue
		}
		if _, dup := seen[u.Content]; dup {
			continue
		}
		seen[u.Content] = struct{}{}
		merged = append(merged, u)
	}
	return merged
}

// NewestAgent returns the last agent utterance appended after the first n
// entries of log.
func NewestAgent(log []Utterance, n int) (Utterance, bool) {
	for i := len(log) - 1; i >= n && i >= 0; i-- {
		if log[i].Role == RoleAgent {
			return log[i], true
		}
	}
	return Utterance{}, false
}

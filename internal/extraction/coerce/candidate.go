package coerce

// maxCandidates bounds how many top-level objects are tried before giving up.
const maxCandidates = 8

// candidates returns the top-level '{'...'}' spans of s in order, skipping
// braces inside JSON strings. Spans that cannot open an object, such as
// template placeholders like "{name}", are skipped and do not count
// against maxCandidates. When the output ends inside an object, the
// unterminated tail from its '{' is returned last so it can be repaired.
func candidates(s string) []string {
	var (
		out      []string
		start    = -1
		depth    int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s) && len(out) < maxCandidates; i++ {
		ch := s[i]
		if depth == 0 {
			if ch == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				if opensObject(s[start : i+1]) {
					out = append(out, s[start:i+1])
				}
				start = -1
			}
		}
	}
	if depth > 0 && start >= 0 && len(out) < maxCandidates && opensObject(s[start:]) {
		out = append(out, s[start:])
	}
	return out
}

// opensObject reports whether the first significant byte after the
// leading '{' can start an object body: a key, a closing brace, or nothing
// yet because the output was cut off.
func opensObject(span string) bool {
	for i := 1; i < len(span); i++ {
		if isSpace(span[i]) {
			continue
		}
		return span[i] == '"' || span[i] == '}'
	}
	return true
}

// longest picks the candidate most likely to be the payload.
func longest(cands []string) string {
	best := ""
	for _, c := range cands {
		if len(c) > len(best) {
			best = c
		}
	}
	return best
}

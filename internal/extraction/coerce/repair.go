package coerce

// repair applies one pass of fixes for the ways small models usually break
// JSON: trailing commas, an unterminated string, missing closing brackets,
// a dangling key or colon at a truncation point, and Python literals
// (True, False, None) outside strings. It never fails; the result may still
// be invalid JSON.
func repair(s string) string {
	var (
		out          = make([]byte, 0, len(s)+8)
		stack        []byte
		inString     bool
		escaped      bool
		keyStart     = -1
		pendingKeyAt = -1
	)

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			out = append(out, ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
				if keyStart >= 0 {
					pendingKeyAt = keyStart
					keyStart = -1
				}
			}
			continue
		}

		switch {
		case ch == '"':
			if len(stack) > 0 && stack[len(stack)-1] == '{' {
				if prev := lastSignificant(out); prev == '{' || prev == ',' {
					keyStart = len(out)
				}
			}
			inString = true
			out = append(out, ch)
		case ch == ':':
			pendingKeyAt = -1
			out = append(out, ch)
		case ch == '{' || ch == '[':
			stack = append(stack, ch)
			out = append(out, ch)
		case ch == '}' || ch == ']':
			out = trimTrailingComma(out)
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			pendingKeyAt = -1
			out = append(out, ch)
		case isWordByte(ch):
			j := i
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			out = append(out, pythonLiteral(s[i:j])...)
			i = j - 1
		default:
			out = append(out, ch)
		}
	}

	if inString {
		if escaped {
			out = out[:len(out)-1]
		}
		out = append(out, '"')
		if keyStart >= 0 {
			pendingKeyAt = keyStart
		}
	}
	// A key cut off before its value cannot be completed; drop it.
	if pendingKeyAt >= 0 {
		out = out[:pendingKeyAt]
	}
	out = trimTrailingComma(out)
	if lastSignificant(out) == ':' {
		out = append(out, "null"...)
	}
	for k := len(stack) - 1; k >= 0; k-- {
		if stack[k] == '{' {
			out = append(out, '}')
		} else {
			out = append(out, ']')
		}
	}
	return string(out)
}

func pythonLiteral(word string) string {
	switch word {
	case "True":
		return "true"
	case "False":
		return "false"
	case "None":
		return "null"
	default:
		return word
	}
}

func isWordByte(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func lastSignificant(b []byte) byte {
	for i := len(b) - 1; i >= 0; i-- {
		if !isSpace(b[i]) {
			return b[i]
		}
	}
	return 0
}

func trimTrailingComma(b []byte) []byte {
	end := len(b)
	for end > 0 && isSpace(b[end-1]) {
		end--
	}
	if end > 0 && b[end-1] == ',' {
		return b[:end-1]
	}
	return b
}

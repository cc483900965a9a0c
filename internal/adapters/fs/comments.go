package fs

// stripComments removes /* block */ and // line comments from a JSON document.
// Comment markers inside string literals are kept. Newlines ending a line
// comment are preserved so parse errors still point at the right line.
func stripComments(src []byte) []byte {
	out := make([]byte, 0, len(src))

	const (
		code = iota
		str
		strEscape
		line
		block
	)
	mode := code

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch mode {
		case code:
			switch {
			case c == '"':
				mode = str
				out = append(out, c)
			case c == '/' && i+1 < len(src) && src[i+1] == '/':
				mode = line
				i++
			case c == '/' && i+1 < len(src) && src[i+1] == '*':
				mode = block
				i++
			default:
				out = append(out, c)
			}
		case str:
			out = append(out, c)
			switch c {
			case '\\':
				mode = strEscape
			case '"':
				mode = code
			}
		case strEscape:
			out = append(out, c)
			mode = str
		case line:
			if c == '\n' {
				out = append(out, c)
				mode = code
			}
		case block:
			if c == '*' && i+1 < len(src) && src[i+1] == '/' {
				mode = code
				i++
			} else if c == '\n' {
				out = append(out, c)
			}
		}
	}
	return out
}

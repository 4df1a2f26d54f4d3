package extract

import "unicode/utf8"

// decodePlainText returns the bytes as a string unchanged, including any
// byte order mark.
func decodePlainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", &DecodeError{Offset: firstInvalid(data)}
	}
	return string(data), nil
}

func firstInvalid(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}

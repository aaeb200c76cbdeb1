package parser

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// maxLineLength caps a single log line. Controller logs never come close.
const maxLineLength = 1024 * 1024

// DecodeLatin1 converts ISO-8859-1 bytes to a UTF-8 string.
func DecodeLatin1(b []byte) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// DecodeName decodes a raw name file and strips NUL padding.
func DecodeName(b []byte) (string, error) {
	s, err := DecodeLatin1(b)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(s, "\x00", ""), nil
}

// NewLineScanner returns a scanner over the Latin-1 decoded content of r,
// splitting on \r\n, \r or \n.
func NewLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(transform.NewReader(r, charmap.ISO8859_1.NewDecoder()))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	scanner.Split(scanAnyLines)
	return scanner
}

// scanAnyLines is a bufio.SplitFunc accepting all three line terminators.
func scanAnyLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		// lone \r at the end of the buffer, need one more byte to decide
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

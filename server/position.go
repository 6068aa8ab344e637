package server

import (
	"strings"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// utf16Len is the number of UTF-16 code units r occupies
func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}

// offsetAt converts an LSP position (UTF-16 character units) to a byte
// offset in text. Out-of-range positions clamp to the end of the line or
// text.
func offsetAt(text string, pos protocol.Position) int {
	offset := 0
	for line := protocol.UInteger(0); line < pos.Line; line++ {
		nl := strings.IndexByte(text[offset:], '\n')
		if nl < 0 {
			return len(text)
		}
		offset += nl + 1
	}
	end := len(text)
	if nl := strings.IndexByte(text[offset:], '\n'); nl >= 0 {
		end = offset + nl
	}

	units := int(pos.Character)
	for offset < end && units > 0 {
		r, size := utf8.DecodeRuneInString(text[offset:end])
		n := utf16Len(r)
		if n > units {
			break
		}
		units -= n
		offset += size
	}
	return offset
}

// positionAt converts a byte offset in text to an LSP position
func positionAt(text string, offset int) protocol.Position {
	if offset > len(text) {
		offset = len(text)
	}
	if offset < 0 {
		offset = 0
	}
	line := strings.Count(text[:offset], "\n")
	lineStart := strings.LastIndexByte(text[:offset], '\n') + 1

	units := 0
	for _, r := range text[lineStart:offset] {
		units += utf16Len(r)
	}
	return protocol.Position{
		Line:      protocol.UInteger(line),
		Character: protocol.UInteger(units),
	}
}

// rangeAt converts a [start, end) byte span to an LSP range
func rangeAt(text string, start, end int) protocol.Range {
	return protocol.Range{Start: positionAt(text, start), End: positionAt(text, end)}
}

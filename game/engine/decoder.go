package engine

import (
	"errors"
	"fmt"
	"strings"
)

// DecodeLevels splits a level pack into its named levels, preserving source
// order. Levels that fail to parse are left out of the result and their
// *ParseError values are joined into the returned error, so callers can still
// offer every level that decoded cleanly.
//
// The first line of a level is its name, digits included. It only counts as
// a missing name when it reads as a row of level tokens as wide as the row
// after it, so a one-column level cannot be named with a single digit.
func DecodeLevels(blob string) ([]Level, error) {
	blob = strings.ReplaceAll(blob, "\r\n", "\n")
	blob = strings.Trim(strings.TrimSpace(blob), LevelDelimiter)
	if strings.TrimSpace(blob) == "" {
		return nil, &ParseError{Reason: "no levels found"}
	}

	var levels []Level
	var errs []error

	for i, chunk := range strings.Split(blob, LevelDelimiter) {
		chunk = strings.TrimSpace(chunk)
		name, body, _ := strings.Cut(chunk, "\n")
		name = strings.TrimSpace(name)
		body = strings.TrimSpace(body)

		if name == "" || isMissingName(name, body) {
			errs = append(errs, &ParseError{Index: i + 1, Reason: "missing name line"})
			continue
		}

		if _, err := ParseBody(body); err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				perr.Level = name
				perr.Index = i + 1
			}
			errs = append(errs, err)
			continue
		}

		levels = append(levels, Level{
			Index: len(levels),
			Name:  name,
			Body:  body,
		})
	}

	return levels, errors.Join(errs...)
}

// ParseBody splits a level body into its rows of tokens and checks the shape
// rules: a non-empty, even number of rows, one column count shared by every
// row, and single-digit tokens only.
func ParseBody(body string) ([][]string, error) {
	body = strings.TrimSpace(strings.ReplaceAll(body, "\r\n", "\n"))
	if body == "" {
		return nil, &ParseError{Reason: "level has no rows"}
	}

	lines := strings.Split(body, "\n")
	rows := make([][]string, 0, len(lines))
	columns := -1

	for i, line := range lines {
		tokens := strings.Fields(line)
		if columns == -1 {
			columns = len(tokens)
		}
		if len(tokens) != columns {
			return nil, &ParseError{
				Row:    i + 1,
				Reason: fmt.Sprintf("expected %d tokens to match the first row, got %d", columns, len(tokens)),
			}
		}
		for j, token := range tokens {
			if !isDigitToken(token) {
				return nil, &ParseError{
					Row:    i + 1,
					Reason: fmt.Sprintf("invalid token %q in column %d", token, j+1),
				}
			}
		}
		rows = append(rows, tokens)
	}

	if columns == 0 {
		return nil, &ParseError{Row: 1, Reason: "row has no tokens"}
	}
	if len(rows)%BandHeight != 0 {
		return nil, &ParseError{Reason: fmt.Sprintf("row count must be even, got %d", len(rows))}
	}
	if len(rows) > MaxGridSize || columns > MaxGridSize {
		return nil, &ParseError{Reason: fmt.Sprintf("grid %dx%d exceeds the %d cell limit per side", columns, len(rows), MaxGridSize)}
	}

	return rows, nil
}

// isDigitToken reports whether token is a single character between 0 and 9
func isDigitToken(token string) bool {
	return len(token) == 1 && token[0] >= '0' && token[0] <= '9'
}

// isMissingName reports whether name is really the first row of body
func isMissingName(name, body string) bool {
	if !isTokenRow(name) {
		return false
	}
	next, _, _ := strings.Cut(body, "\n")
	return body == "" || len(strings.Fields(next)) == len(strings.Fields(name))
}

// isTokenRow reports whether line looks like a row of level tokens
func isTokenRow(line string) bool {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return false
	}
	for _, token := range tokens {
		if !isDigitToken(token) {
			return false
		}
	}
	return true
}

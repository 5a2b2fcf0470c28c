package monitor

import (
	"errors"
	"strconv"
	"strings"
)

// ErrMalformedLine is returned in strict mode for lines that do not
// match either known monitoring line format.
var ErrMalformedLine = errors.New("malformed monitor line")

// Two line shapes exist in the wild:
//
//	<ts> (db <N>) "<command>" <arguments...>        old servers
//	<ts> [<N> <client>] "<command>" <arguments...>  current servers
//
// parseLine collapses the first occurrence of either section to a
// single space, capturing the database index and client address, then
// splits the rest on the first two spaces into timestamp, command and
// arguments. When both shapes appear in one line (possible only when
// an argument happens to contain the other pattern), the
// earlier-starting one wins. The very oldest servers emit neither
// section; those lines keep database 0 and no client.
//
// Lenient parsing is the default: a line missing pieces degrades to an
// Event with zero values for whatever could not be extracted. In
// strict mode the same conditions return ErrMalformedLine instead.
func parseLine(line string, strict bool) (Event, error) {
	ev := Event{Raw: line}

	rest := line
	legDB, legRest, legStart, legOK := cutLegacySection(line)
	cliDB, cliClient, cliRest, cliStart, cliOK := cutClientSection(line)
	switch {
	case legOK && (!cliOK || legStart <= cliStart):
		ev.Database = legDB
		rest = legRest
	case cliOK:
		ev.Database = cliDB
		ev.Client = cliClient
		rest = cliRest
	}

	parts := strings.SplitN(rest, " ", 3)
	if len(parts) < 2 {
		if strict {
			return Event{}, ErrMalformedLine
		}
		if len(parts) == 1 {
			ev.Timestamp = lenientFloat(parts[0])
		}
		return ev, nil
	}

	ts, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		if strict {
			return Event{}, ErrMalformedLine
		}
		ts = lenientFloat(parts[0])
	}
	ev.Timestamp = ts

	cmd, quoted := stripQuotes(parts[1])
	if !quoted && strict {
		return Event{}, ErrMalformedLine
	}
	ev.Command = cmd

	if len(parts) == 3 {
		ev.Arguments = parts[2]
	}
	return ev, nil
}

// cutLegacySection finds the first full ` (db N) ` section and replaces
// it with one space. start is the section's byte offset, -1 on no
// match. Openers that do not complete a section are skipped.
func cutLegacySection(line string) (db int, rest string, start int, ok bool) {
	const open = " (db "
	from := 0
	for {
		i := strings.Index(line[from:], open)
		if i < 0 {
			return 0, line, -1, false
		}
		i += from
		body := line[i+len(open):]
		if j := strings.Index(body, ") "); j >= 0 {
			if n, err := parseIndex(body[:j]); err == nil {
				return n, line[:i] + " " + body[j+2:], i, true
			}
		}
		from = i + 1
	}
}

// cutClientSection finds the first full ` [N client] ` section and
// replaces it with one space, capturing both fields. The client
// address runs to the first `] ` after the index. start is the
// section's byte offset, -1 on no match.
func cutClientSection(line string) (db int, client, rest string, start int, ok bool) {
	const open = " ["
	from := 0
	for {
		i := strings.Index(line[from:], open)
		if i < 0 {
			return 0, "", line, -1, false
		}
		i += from
		body := line[i+len(open):]
		if sp := strings.IndexByte(body, ' '); sp >= 0 {
			if n, err := parseIndex(body[:sp]); err == nil {
				tail := body[sp+1:]
				if j := strings.Index(tail, "] "); j >= 0 {
					return n, tail[:j], line[:i] + " " + tail[j+2:], i, true
				}
			}
		}
		from = i + 1
	}
}

// parseIndex accepts only unsigned decimal digits, so a bracketed
// section that is not a database index (say, part of an argument) is
// left alone.
func parseIndex(s string) (int, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

// stripQuotes removes the delimiting quote characters from a command
// token. Tokens that are not quoted are returned unchanged.
func stripQuotes(tok string) (string, bool) {
	if len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"' {
		return tok[1 : len(tok)-1], true
	}
	return tok, false
}

// lenientFloat mimics a best-effort numeric cast: it parses the
// longest numeric prefix and falls back to 0.
func lenientFloat(s string) float64 {
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || c == '.' || (end == 0 && (c == '-' || c == '+')) {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return f
}

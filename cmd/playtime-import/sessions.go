package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/pokercrm/playtime/internal/domain"
	"github.com/pokercrm/playtime/internal/kafka"
)

const maxLineSize = 1 << 20

// lineError is a session that failed to decode or normalize
type lineError struct {
	Line int
	Err  error
}

// readSessions decodes one JSON session per line. Blank lines and lines
// starting with # are ignored; lines that fail validation are returned as
// rejected rather than aborting the read.
func readSessions(r io.Reader) ([]domain.Session, []lineError, error) {
	var (
		sessions []domain.Session
		rejected []lineError
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 || text[0] == '#' {
			continue
		}

		s, err := kafka.DecodeSession(text)
		if err != nil {
			rejected = append(rejected, lineError{Line: line, Err: err})
			continue
		}
		sessions = append(sessions, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading sessions: %w", err)
	}

	return sessions, rejected, nil
}

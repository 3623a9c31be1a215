// Package linelog turns a byte stream into one log record per line.
package linelog

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// maxConsecutiveErrors bounds how often Drain retries a stream that keeps
// failing without delivering data.
const maxConsecutiveErrors = 3

// Drain reads r until end of stream and logs every non-empty line at level.
//
// Lines end at '\n'; a '\r' right before it is dropped. Empty lines, including
// a lone '\r', are not logged. A trailing line without terminator is logged at
// end of stream. Read errors never reach the caller: they are logged at debug
// level and reading resumes, until a stream fails maxConsecutiveErrors times
// in a row without delivering data.
func Drain(r io.Reader, logger zerolog.Logger, level zerolog.Level) {
	br := bufio.NewReader(r)
	var pending []byte
	failures := 0

	for {
		chunk, err := br.ReadBytes('\n')
		if len(chunk) > 0 {
			failures = 0
			pending = append(pending, chunk...)
		}
		if err == nil {
			// ReadBytes only returns a nil error with a complete line.
			emit(logger, level, pending)
			pending = pending[:0]
			continue
		}

		switch {
		case errors.Is(err, io.EOF):
			emit(logger, level, pending)
			return
		case errors.Is(err, os.ErrClosed):
			emit(logger, level, pending)
			logger.Debug().Err(err).Msg("stream closed while draining output")
			return
		}

		failures++
		logger.Debug().Err(err).Int("attempt", failures).Msg("error reading output stream")
		if failures >= maxConsecutiveErrors {
			emit(logger, level, pending)
			return
		}
	}
}

func emit(logger zerolog.Logger, level zerolog.Level, line []byte) {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	// A line of nothing but stray carriage returns is empty too.
	if len(bytes.TrimLeft(line, "\r")) == 0 {
		return
	}
	logger.WithLevel(level).Msg(string(line))
}

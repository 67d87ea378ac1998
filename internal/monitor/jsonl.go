package monitor

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/lobbywatch/backend/internal/lobby"
	"github.com/lobbywatch/backend/internal/metrics"
)

// FileSource tails a file of JSON events, one per line.
type FileSource struct {
	path   string
	offset int64
	logger *slog.Logger
}

func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:   path,
		logger: logger.With(slog.String("source", "file"), slog.String("path", path)),
	}
}

func (s *FileSource) Name() string { return "file" }

// Offset is the byte position the next Poll starts reading from.
func (s *FileSource) Offset() int64 { return s.offset }

// Poll reads complete lines written since the last call. A missing file
// yields nothing; a file shorter than the current offset is assumed to have
// been rotated and is read from the start.
func (s *FileSource) Poll() ([]lobby.Event, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if info.Size() < s.offset {
		s.logger.Info("event file shrank, reading from start",
			slog.Int64("size", info.Size()),
			slog.Int64("offset", s.offset))
		s.offset = 0
	}
	if info.Size() == s.offset {
		return nil, nil
	}

	events, next, err := ReadEventsAt(s.path, s.offset, s.logger)
	s.offset = next
	return events, err
}

// ReadEventsAt parses events from path starting at offset. The returned
// offset only advances past complete lines, so a partially written final
// line is read again next time.
func ReadEventsAt(path string, offset int64, logger *slog.Logger) ([]lobby.Event, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, offset, err
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, offset, err
		}
	}

	var events []lobby.Event
	reader := bufio.NewReader(f)
	parsedOffset := offset

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return events, parsedOffset, err
		}
		if len(line) == 0 {
			break
		}
		// Incomplete trailing line: leave it for the next read.
		if line[len(line)-1] != '\n' {
			break
		}
		parsedOffset += int64(len(line))

		if ev, ok := decodeLine(line, logger); ok {
			events = append(events, ev)
		}
		if err == io.EOF {
			break
		}
	}

	return events, parsedOffset, nil
}

// ReadEvents decodes every line of r, including an unterminated last line.
// Malformed lines are logged and skipped.
func ReadEvents(r io.Reader, logger *slog.Logger) ([]lobby.Event, error) {
	var events []lobby.Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ev, ok := decodeLine(scanner.Bytes(), logger); ok {
			events = append(events, ev)
		}
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("read events: %w", err)
	}
	return events, nil
}

func decodeLine(line []byte, logger *slog.Logger) (lobby.Event, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, false
	}
	ev, err := lobby.DecodeEvent(line)
	if err != nil {
		metrics.EventsDecodeFailed.Inc()
		if logger != nil {
			logger.Warn("skipping malformed event line", slog.Any("error", err))
		}
		return nil, false
	}
	return ev, true
}

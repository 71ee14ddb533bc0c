package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	maxLineSize  = 1024 * 1024
	pollInterval = 250 * time.Millisecond
)

// Filter selects log records. Zero values match everything.
type Filter struct {
	RunID    string
	MinLevel string
}

// Record is one decoded line. Raw keeps the original text so callers can
// print it unchanged.
type Record struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"msg"`
	RunID   string `json:"run_id"`
	Raw     string `json:"-"`
}

// Match reports whether rec passes the filter.
func (f Filter) Match(rec Record) bool {
	if id := strings.TrimSpace(f.RunID); id != "" && !strings.HasPrefix(rec.RunID, id) {
		return false
	}
	if floor := strings.TrimSpace(f.MinLevel); floor != "" && levelRank(rec.Level) < levelRank(floor) {
		return false
	}
	return true
}

func levelRank(level string) int {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return 0
	case "WARN", "WARNING":
		return 2
	case "ERROR":
		return 3
	default:
		return 1
	}
}

func parseRecord(line string) (Record, bool) {
	var rec Record
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return Record{}, false
	}
	rec.Raw = line
	return rec, true
}

// TailResult holds matching records and the byte offset after the last read.
type TailResult struct {
	Records []Record
	Offset  int64
}

// Tail returns up to limit of the newest records in path matching filter. A
// missing file yields an empty result. Lines that are not JSON are skipped.
func Tail(path string, limit int, filter Filter) (TailResult, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return TailResult{}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{}, fmt.Errorf("log path %q is a directory", path)
	}
	if limit <= 0 {
		return TailResult{Offset: info.Size()}, nil
	}

	ring := make([]Record, limit)
	count, idx := 0, 0
	offset, err := scanRecords(file, filter, func(rec Record) {
		ring[idx] = rec
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	})
	if err != nil {
		return TailResult{}, err
	}

	records := make([]Record, count)
	if count == limit {
		for i := 0; i < count; i++ {
			records[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(records, ring[:count])
	}
	return TailResult{Records: records, Offset: offset}, nil
}

// Follow polls path from offset and calls emit for each new matching record
// until ctx ends. A truncated file is read again from the start.
func Follow(ctx context.Context, path string, offset int64, filter Filter, emit func(Record)) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, filter, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, filter Filter, emit func(Record)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	next, err := scanRecords(file, filter, emit)
	if err != nil {
		return offset, err
	}
	return offset + next, nil
}

// scanRecords reads complete lines from r and returns the number of bytes
// consumed. A trailing partial line is left for the next read.
func scanRecords(r io.Reader, filter Filter, emit func(Record)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		if len(line) > maxLineSize {
			continue
		}
		rec, ok := parseRecord(strings.TrimRight(line, "\r\n"))
		if ok && filter.Match(rec) {
			emit(rec)
		}
	}
}

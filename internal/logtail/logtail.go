package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Entry is one decoded log line.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
	Fields  map[string]any
	// Raw is the original line, kept for lines that are not JSON.
	Raw string
}

// reserved keys written by the logging encoder.
var reserved = map[string]struct{}{
	"timestamp": {}, "level": {}, "msg": {}, "caller": {}, "logger": {}, "stacktrace": {},
}

// Read returns at most maxLines entries from the end of the file at path. A
// missing file yields no entries. maxLines <= 0 reads the whole file.
func Read(path string, maxLines int) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	var ring []string
	if maxLines > 0 {
		ring = make([]string, 0, maxLines)
	}
	start := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if maxLines <= 0 || len(ring) < maxLines {
			ring = append(ring, line)
			continue
		}
		ring[start] = line
		start = (start + 1) % maxLines
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	entries := make([]Entry, 0, len(ring))
	for i := range ring {
		entries = append(entries, Parse(ring[(start+i)%len(ring)]))
	}
	return entries, nil
}

// Parse decodes a JSON log line. Lines that are not JSON objects come back
// with only Raw and Message set.
func Parse(line string) Entry {
	entry := Entry{Raw: line, Message: line}
	var obj map[string]any
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		return entry
	}
	if msg, ok := obj["msg"].(string); ok {
		entry.Message = msg
	}
	if lvl, ok := obj["level"].(string); ok {
		entry.Level = lvl
	}
	if ts, ok := obj["timestamp"].(string); ok {
		for _, layout := range []string{"2006-01-02T15:04:05.000Z0700", time.RFC3339Nano} {
			if parsed, err := time.Parse(layout, ts); err == nil {
				entry.Time = parsed
				break
			}
		}
	}
	for k, v := range obj {
		if _, skip := reserved[k]; skip {
			continue
		}
		if entry.Fields == nil {
			entry.Fields = make(map[string]any)
		}
		entry.Fields[k] = v
	}
	return entry
}

// String renders the entry as a single display line.
func (e Entry) String() string {
	if e.Level == "" && e.Time.IsZero() {
		return e.Raw
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Format("15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s %s", strings.ToUpper(e.Level), e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	return b.String()
}

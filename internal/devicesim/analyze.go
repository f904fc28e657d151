package devicesim

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/muurk/dmxsync/internal/protocol"
	"github.com/muurk/dmxsync/internal/snapshot"
)

// maxRecordSize bounds one JSONL line when reading a capture.
const maxRecordSize = 1 << 20

// ReadCapture decodes a JSONL capture written with Options.CaptureDir.
// Blank lines are skipped.
func ReadCapture(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

	var records []Record
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// TypeCount is the number of messages of one type in one direction.
type TypeCount struct {
	Direction string
	Type      string
	Count     int
}

// CaptureSummary describes a capture.
type CaptureSummary struct {
	Messages  int
	Malformed int
	Clients   []string
	First     time.Time
	Last      time.Time

	// Types is sorted by direction, then type.
	Types []TypeCount

	// Unrecognized lists device->client types no handler receives.
	Unrecognized []string

	// UnknownFields lists config keys outside the field registry.
	UnknownFields []string
}

// Duration is the time between the first and last message.
func (s CaptureSummary) Duration() time.Duration {
	return s.Last.Sub(s.First)
}

// Summarize counts records by direction and type and checks every config
// push against the field registry.
func Summarize(records []Record) CaptureSummary {
	var sum CaptureSummary
	counts := make(map[[2]string]int)
	clients := make(map[string]bool)
	unrecognized := make(map[string]bool)
	unknown := make(map[string]bool)

	for _, rec := range records {
		sum.Messages++
		clients[rec.RemoteAddr] = true
		if sum.First.IsZero() || rec.Timestamp.Before(sum.First) {
			sum.First = rec.Timestamp
		}
		if rec.Timestamp.After(sum.Last) {
			sum.Last = rec.Timestamp
		}

		env, err := protocol.Decode([]byte(rec.Payload))
		if err != nil {
			sum.Malformed++
			continue
		}
		counts[[2]string{rec.Direction, string(env.Type)}]++

		if rec.Direction != DirectionOut {
			continue
		}
		if !env.Type.Recognized() && env.Type != protocol.TypeConfigUpdate && env.Type != protocol.TypeError {
			unrecognized[string(env.Type)] = true
		}
		if env.Type == protocol.TypeConfig {
			snap, err := snapshot.Parse(env.Raw)
			if err != nil {
				sum.Malformed++
				continue
			}
			for _, key := range snap.Keys() {
				if _, ok := snapshot.Lookup(key); !ok && key != "type" {
					unknown[key] = true
				}
			}
		}
	}

	for k, n := range counts {
		sum.Types = append(sum.Types, TypeCount{Direction: k[0], Type: k[1], Count: n})
	}
	sort.Slice(sum.Types, func(i, j int) bool {
		if sum.Types[i].Direction != sum.Types[j].Direction {
			return sum.Types[i].Direction < sum.Types[j].Direction
		}
		return sum.Types[i].Type < sum.Types[j].Type
	})

	sum.Clients = sortedKeys(clients)
	sum.Unrecognized = sortedKeys(unrecognized)
	sum.UnknownFields = sortedKeys(unknown)
	return sum
}

func sortedKeys(m map[string]bool) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

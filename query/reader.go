package query

import (
	"strconv"
	"strings"
)

// LineKind classifies a received line.
type LineKind uint8

const (
	LineData LineKind = iota
	LineStatus
	LineEvent
)

func (k LineKind) String() string {
	switch k {
	case LineData:
		return "data"
	case LineStatus:
		return "status"
	case LineEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Classify returns the kind of line by its prefix sentinel.
//
// A line is a status line when it starts with "error ". It is an event when
// its first token starts with "notify" and is not a key=value pair. Anything
// else is data.
func Classify(line string) LineKind {
	if strings.HasPrefix(line, StatusPrefix+CellSeparator) {
		return LineStatus
	}
	if strings.HasPrefix(line, EventPrefix) {
		head, _, _ := strings.Cut(line, CellSeparator)
		if !strings.Contains(head, PairSeparator) {
			return LineEvent
		}
	}
	return LineData
}

// ParseStatus parses a terminator line:
//
//	error id=<code> msg=<escaped> [extra_msg=<escaped>] [failed_permid=<id>]
func ParseStatus(line string) (Status, error) {
	rest, ok := strings.CutPrefix(line, StatusPrefix+CellSeparator)
	if !ok {
		return Status{}, &DecodeError{Line: line, Message: "not a status line"}
	}

	rec, err := parseRecord(line, rest)
	if err != nil {
		return Status{}, err
	}

	idVal, ok := rec["id"]
	if !ok {
		return Status{}, &DecodeError{Line: line, Message: "status line without id"}
	}
	id, ok := idVal.Int()
	if !ok {
		return Status{}, &DecodeError{Line: line, Message: "status line with non-numeric id"}
	}

	return Status{
		ID:           int(id),
		Message:      rec.String("msg"),
		ExtraMessage: rec.String("extra_msg"),
		FailedPermID: int(rec.Int("failed_permid", 0)),
	}, nil
}

// ParseEvent parses a notification line: notify<name> <k>=<v> ...
func ParseEvent(line string) (Event, error) {
	if Classify(line) != LineEvent {
		return Event{}, &DecodeError{Line: line, Message: "not an event line"}
	}

	head, rest, _ := strings.Cut(line, CellSeparator)
	rec, err := parseRecord(line, rest)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Name:   strings.TrimPrefix(head, EventPrefix),
		Record: rec,
	}, nil
}

// ParseRecords parses a data line into its pipe separated records.
// The empty line yields no records.
func ParseRecords(line string) ([]Record, error) {
	if line == "" {
		return nil, nil
	}

	parts := strings.Split(line, ListSeparator)
	records := make([]Record, 0, len(parts))
	for _, part := range parts {
		rec, err := parseRecord(line, part)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseRecord parses space separated key=value tokens. A token without
// PairSeparator is a key with an empty value.
func parseRecord(line, s string) (Record, error) {
	rec := make(Record)
	for _, token := range strings.Split(s, CellSeparator) {
		if token == "" {
			continue
		}

		key, raw, _ := strings.Cut(token, PairSeparator)
		if key == "" {
			return nil, &DecodeError{Line: line, Message: "token without key: " + strconv.Quote(token)}
		}

		val, err := Unescape(raw)
		if err != nil {
			return nil, &DecodeError{Line: line, Message: "invalid value for " + key, Err: err}
		}
		rec[key] = ParseValue(val)
	}
	return rec, nil
}

// ReplyReader assembles the reply of one command from lines fed in arrival
// order. The zero value is ready to use; a ReplyReader serves one command.
type ReplyReader struct {
	records []Record
}

// Feed consumes one line. An event line yields the event. The status line
// completes the reply: it yields the reply, or a *CommandError for non-zero
// ids, in which case the accumulated records are dropped. Any other error
// is a *DecodeError and the stream can't be trusted anymore.
func (r *ReplyReader) Feed(line string) (*Reply, *Event, error) {
	if line == "" {
		return nil, nil, nil
	}

	switch Classify(line) {
	case LineEvent:
		ev, err := ParseEvent(line)
		if err != nil {
			return nil, nil, err
		}
		return nil, &ev, nil

	case LineStatus:
		st, err := ParseStatus(line)
		if err != nil {
			return nil, nil, err
		}
		records := r.records
		r.records = nil
		if err := st.Err(); err != nil {
			return nil, nil, err
		}
		return &Reply{Status: st, Records: records}, nil, nil

	default:
		recs, err := ParseRecords(line)
		if err != nil {
			return nil, nil, err
		}
		r.records = append(r.records, recs...)
		return nil, nil, nil
	}
}

// Pending returns the number of records received so far.
func (r *ReplyReader) Pending() int {
	return len(r.records)
}

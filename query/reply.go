package query

// Status is the content of a reply terminator line.
type Status struct {
	ID           int
	Message      string
	ExtraMessage string
	FailedPermID int
}

// OK reports whether the status id is zero.
func (s Status) OK() bool {
	return s.ID == StatusOK
}

// Err returns a *CommandError for non-zero ids, nil otherwise.
func (s Status) Err() error {
	if s.OK() {
		return nil
	}
	return &CommandError{
		ID:           s.ID,
		Message:      s.Message,
		ExtraMessage: s.ExtraMessage,
		FailedPermID: s.FailedPermID,
	}
}

// Reply is the structured result of one command.
type Reply struct {
	Status  Status
	Records []Record
}

// Len returns the number of records.
func (r *Reply) Len() int {
	return len(r.Records)
}

// First returns the first record, or an empty record when there is none.
func (r *Reply) First() Record {
	if len(r.Records) == 0 {
		return Record{}
	}
	return r.Records[0]
}

// Column returns the values of key across all records, skipping records
// that lack it.
func (r *Reply) Column(key string) []Value {
	out := make([]Value, 0, len(r.Records))
	for _, rec := range r.Records {
		if v, ok := rec[key]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Assoc indexes the records by the text of key. Records without key are
// dropped; on duplicates the last record wins.
func (r *Reply) Assoc(key string) map[string]Record {
	out := make(map[string]Record, len(r.Records))
	for _, rec := range r.Records {
		if v, ok := rec[key]; ok {
			out[v.String()] = rec
		}
	}
	return out
}

// Event is an unsolicited notification.
type Event struct {
	// Name is the notification type without EventPrefix, e.g. "cliententerview".
	Name   string
	Record Record
}

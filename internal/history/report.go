package history

import (
	"fmt"
	"io"
)

// Report is the exportable form of one stored task run.
type Report struct {
	Task  *TaskRecord  `json:"task"`
	Items []ItemRecord `json:"items"`
}

// Report assembles the task record and its items for export.
func (s *Store) Report(id string) (*Report, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("task %s not found", id)
	}

	items, err := s.Items(id)
	if err != nil {
		return nil, err
	}
	return &Report{Task: rec, Items: items}, nil
}

// WriteReport encodes the report as indented JSON.
func WriteReport(w io.Writer, r *Report) error {
	return jsonEncode(w, r)
}

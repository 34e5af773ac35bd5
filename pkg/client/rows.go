package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Default dataset identifiers.
const (
	DefaultDatasetName   = "slava-medvedev/zelensky-speeches"
	DefaultDatasetConfig = "default"
	DefaultDatasetSplit  = "train"
)

// Dataset names one split of a dataset on the Hub.
type Dataset struct {
	Name   string
	Config string
	Split  string
}

// DefaultDataset returns the dataset used when nothing else is configured.
func DefaultDataset() Dataset {
	return Dataset{
		Name:   DefaultDatasetName,
		Config: DefaultDatasetConfig,
		Split:  DefaultDatasetSplit,
	}
}

// HubURL returns the dataset's public page on huggingface.co.
func (d Dataset) HubURL() string {
	return "https://huggingface.co/datasets/" + d.Name
}

// Validate reports a missing identifier.
func (d Dataset) Validate() error {
	switch {
	case d.Name == "":
		return fmt.Errorf("dataset name is required")
	case d.Config == "":
		return fmt.Errorf("dataset config is required")
	case d.Split == "":
		return fmt.Errorf("dataset split is required")
	}
	return nil
}

// RowsQuery selects a window of rows.
type RowsQuery struct {
	Dataset Dataset
	Offset  int
	Length  int
}

// Values encodes the query as dataset-server query parameters.
func (q RowsQuery) Values() url.Values {
	return url.Values{
		"dataset": []string{q.Dataset.Name},
		"config":  []string{q.Dataset.Config},
		"split":   []string{q.Dataset.Split},
		"offset":  []string{strconv.Itoa(q.Offset)},
		"length":  []string{strconv.Itoa(q.Length)},
	}
}

// Row is one dataset record.
type Row struct {
	Index  int
	Fields map[string]any
}

type wireRow struct {
	RowIdx int            `json:"row_idx"`
	Row    map[string]any `json:"row"`
}

// UnmarshalJSON decodes the dataset-server {"row_idx", "row"} envelope.
func (r *Row) UnmarshalJSON(data []byte) error {
	var w wireRow
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Index = w.RowIdx
	r.Fields = w.Row
	return nil
}

// MarshalJSON encodes the row in the dataset-server envelope.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRow{RowIdx: r.Index, Row: r.Fields})
}

// Text returns a field as display text. Missing and null fields are "".
// Strings are returned as is; other values use their JSON encoding.
func (r Row) Text(field string) string {
	v, ok := r.Fields[field]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// RowsResponse is the body of GET /rows.
type RowsResponse struct {
	Rows           []Row `json:"rows"`
	NumRowsTotal   int   `json:"num_rows_total"`
	NumRowsPerPage int   `json:"num_rows_per_page"`
	Partial        bool  `json:"partial"`
}

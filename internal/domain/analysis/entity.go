package analysis

import (
	"bytes"
	"encoding/json"
	"time"
)

// Result is the model's structured output for one call recording.
// Keys keep the order the model wrote them in; nested mappings are *Result.
type Result struct {
	keys   []string
	values map[string]any
}

func NewResult() *Result {
	return &Result{values: map[string]any{}}
}

// Set adds or replaces a field. A replaced field keeps its original position.
func (r *Result) Set(key string, value any) *Result {
	if r.values == nil {
		r.values = map[string]any{}
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
	return r
}

func (r *Result) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the field names in document order.
func (r *Result) Keys() []string {
	return append([]string(nil), r.keys...)
}

func (r *Result) Len() int { return len(r.keys) }

func (r Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Status of the latest run recorded for an analysis name.
type Status string

const (
	StatusParsed Status = "parsed"
	StatusRaw    Status = "raw"
	StatusFailed Status = "failed"
)

// Settings carries the model call parameters loaded once at startup.
type Settings struct {
	ModelName         string
	SystemInstruction string
	Prompt            string
	APIKey            string
	// APIKeyEnv names the variable the key comes from, for error messages.
	APIKeyEnv string
}

// Record is the index entry for the most recent run against an audio base name.
type Record struct {
	Name       string    `json:"name"`
	AudioFile  string    `json:"audio_file"`
	Status     Status    `json:"status"`
	ResultFile string    `json:"result_file,omitempty"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ReasonCount is one entry of ReasonCounts.
type ReasonCount struct {
	Reason string
	Count  int
}

// ReasonCounts maps failure reasons to counts, keeping the order in which
// reasons were first seen. It encodes as a JSON object in that order.
type ReasonCounts []ReasonCount

// Add increments the count for reason, appending it if unseen.
func (rc *ReasonCounts) Add(reason string, n int) {
	for i := range *rc {
		if (*rc)[i].Reason == reason {
			(*rc)[i].Count += n
			return
		}
	}
	*rc = append(*rc, ReasonCount{Reason: reason, Count: n})
}

// Get returns the count recorded for reason.
func (rc ReasonCounts) Get(reason string) int {
	for _, e := range rc {
		if e.Reason == reason {
			return e.Count
		}
	}
	return 0
}

// Reasons returns the reasons in first-seen order.
func (rc ReasonCounts) Reasons() []string {
	out := make([]string, 0, len(rc))
	for _, e := range rc {
		out = append(out, e.Reason)
	}
	return out
}

func (rc ReasonCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range rc {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, e.Reason); err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "%d", e.Count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (rc *ReasonCounts) UnmarshalJSON(data []byte) error {
	out := ReasonCounts{}
	err := decodeObject(data, func(key string, dec *json.Decoder) error {
		var n int
		if err := dec.Decode(&n); err != nil {
			return err
		}
		out = append(out, ReasonCount{Reason: key, Count: n})
		return nil
	})
	if err != nil {
		return fmt.Errorf("decoding reason counts: %w", err)
	}
	*rc = out
	return nil
}

// ReasonDetail lists the order references that failed with Reason.
type ReasonDetail struct {
	Reason string
	Refs   []string
}

// ReasonDetails maps failure reasons to ordered order references, keeping
// the order in which reasons were first seen.
type ReasonDetails []ReasonDetail

// Append adds ref under reason.
func (rd *ReasonDetails) Append(reason string, refs ...string) {
	for i := range *rd {
		if (*rd)[i].Reason == reason {
			(*rd)[i].Refs = append((*rd)[i].Refs, refs...)
			return
		}
	}
	*rd = append(*rd, ReasonDetail{Reason: reason, Refs: append([]string{}, refs...)})
}

// Get returns the refs recorded for reason.
func (rd ReasonDetails) Get(reason string) []string {
	for _, e := range rd {
		if e.Reason == reason {
			return e.Refs
		}
	}
	return nil
}

func (rd ReasonDetails) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range rd {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, e.Reason); err != nil {
			return nil, err
		}
		refs := e.Refs
		if refs == nil {
			refs = []string{}
		}
		b, err := json.Marshal(refs)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (rd *ReasonDetails) UnmarshalJSON(data []byte) error {
	out := ReasonDetails{}
	err := decodeObject(data, func(key string, dec *json.Decoder) error {
		refs := []string{}
		if err := dec.Decode(&refs); err != nil {
			return err
		}
		out = append(out, ReasonDetail{Reason: key, Refs: refs})
		return nil
	})
	if err != nil {
		return fmt.Errorf("decoding reason details: %w", err)
	}
	*rd = out
	return nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	b, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(b)
	buf.WriteByte(':')
	return nil
}

// decodeObject walks a JSON object in document order, handing each value to fn.
func decodeObject(data []byte, fn func(key string, dec *json.Decoder) error) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %v", tok)
		}
		if err := fn(key, dec); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

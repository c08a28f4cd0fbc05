// Package stigmergy implements the append-only, content-addressed event log
// ("the stigmergy trail") that every daemon coordinates through, and the
// canonical CloudEvents-shaped envelope stored in it. See spec.md §3, §4.1,
// §4.2, §6.1.
package stigmergy

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// SpecVersion is the CloudEvents spec version this system writes.
const SpecVersion = "1.0"

// DataContentType is the fixed content type of every envelope's data field.
const DataContentType = "application/json"

// Envelope is the canonical CloudEvents-shaped object persisted as
// data_json (§6.1). Field order here does not matter for storage — only the
// sorted-key canonical serialization (Canonicalize) does.
type Envelope struct {
	SpecVersion     string         `json:"specversion"`
	ID              string         `json:"id"`
	Type            string         `json:"type"`
	Source          string         `json:"source"`
	Subject         string         `json:"subject"`
	Time            string         `json:"time"`
	Timestamp       string         `json:"timestamp"`
	DataContentType string         `json:"datacontenttype"`
	TraceParent     string         `json:"traceparent"`
	Data            map[string]any `json:"data"`
}

// NewEnvelope constructs a canonical envelope for (eventType, subject, data,
// source). It auto-fills id, time, timestamp, traceparent. data may be nil,
// in which case an empty map is used so "data" is always present (I3).
func NewEnvelope(eventType, subject, source string, data map[string]any) *Envelope {
	if data == nil {
		data = map[string]any{}
	}
	now := time.Now().UTC()
	return &Envelope{
		SpecVersion:     SpecVersion,
		ID:              randomHex(16),
		Type:            eventType,
		Source:          source,
		Subject:         subject,
		Time:            now.Format(time.RFC3339Nano),
		Timestamp:       now.Format(time.RFC3339Nano),
		DataContentType: DataContentType,
		TraceParent:     newTraceParent(),
		Data:            data,
	}
}

// randomHex returns n random bytes hex-encoded (so 2n hex characters).
func randomHex(n int) string {
	// uuid.New is already a CSPRNG-backed 128-bit value; concatenate two for
	// a 256-bit id when n > 16, otherwise truncate.
	buf := make([]byte, 0, n)
	for len(buf) < n {
		u := uuid.New()
		buf = append(buf, u[:]...)
	}
	return hex.EncodeToString(buf[:n])
}

// newTraceParent synthesizes a W3C-shaped traceparent: "00-<32hex>-<16hex>-01".
func newTraceParent() string {
	return fmt.Sprintf("00-%s-%s-01", randomHex(16), randomHex(8))
}

// Canonicalize serializes the envelope as JSON with all object keys sorted
// recursively, no insignificant whitespace, UTF-8, and no trailing newline
// (§6.1). content_hash is SHA-256 over this exact byte sequence.
func Canonicalize(env *Envelope) ([]byte, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("stigmergy: marshal envelope: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("stigmergy: re-decode envelope: %w", err)
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeCanonical recursively writes v with object keys sorted and no
// insignificant whitespace, matching the subset of JSON values that
// encoding/json produces from an Envelope (objects, arrays, strings,
// numbers, bools, null).
func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

// ContentHash returns the lowercase hex SHA-256 of the envelope's canonical
// serialization — the event's dedup identity (I1).
func ContentHash(env *Envelope) (string, error) {
	canon, err := Canonicalize(env)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// DecodeEnvelope parses a stored row's data_json back into the full
// canonical envelope (§6.1): data_json holds specversion/id/type/source/
// subject/time/timestamp/datacontenttype/traceparent/data, not just the
// bare payload, so any reader of a past event's fields goes through this
// rather than json.Unmarshal-ing the row's DataJSON column directly.
func DecodeEnvelope(dataJSON string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(dataJSON), &env); err != nil {
		return nil, fmt.Errorf("stigmergy: decode envelope: %w", err)
	}
	return &env, nil
}

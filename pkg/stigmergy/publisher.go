package stigmergy

import (
	"context"
	"fmt"
)

// Publisher is the C2 Event Publisher: the only path any daemon should use
// to write to the trail. It owns envelope construction, canonicalization,
// and hashing so every writer produces byte-identical envelopes for
// byte-identical logical events (I1, I2).
type Publisher struct {
	store      *Store
	source     string
	generation string
}

// NewPublisher binds a Publisher to store, tagging every event it writes
// with source (the publishing daemon's identity, e.g. "supervisor",
// "anchor-worker") and generation (the HFO_GENERATION tag, §6.5).
func NewPublisher(store *Store, source, generation string) *Publisher {
	return &Publisher{store: store, source: source, generation: generation}
}

// SignalMetadata is attached to data["signal"] on every published event
// (§4.2 step 2) so a consumer can recover provenance without re-deriving it
// from the envelope's source/time fields.
type SignalMetadata struct {
	Source     string `json:"source"`
	Generation string `json:"generation"`
}

// Publish builds a canonical envelope for (eventType, subject, data),
// injects the signal metadata block if the caller hasn't already set one,
// hashes it, and appends it to the store. It returns the assigned id (0 if
// the event was a dedup no-op per I1) and the content hash.
func (p *Publisher) Publish(ctx context.Context, eventType, subject string, data map[string]any) (id int64, contentHash string, err error) {
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["signal"]; !ok {
		data["signal"] = SignalMetadata{Source: p.source, Generation: p.generation}
	}

	env := NewEnvelope(eventType, subject, p.source, data)

	canon, err := Canonicalize(env)
	if err != nil {
		return 0, "", fmt.Errorf("stigmergy: canonicalize event: %w", err)
	}
	hash, err := ContentHash(env)
	if err != nil {
		return 0, "", fmt.Errorf("stigmergy: hash event: %w", err)
	}

	// data_json stores the full canonical envelope, not just the payload
	// (§3, §6.1) — consumers read it back via DecodeEnvelope.
	id, err = p.store.Append(ctx, env.Type, env.Timestamp, env.Subject, env.Source, string(canon), hash)
	if err != nil {
		return 0, "", err
	}
	return id, hash, nil
}

package feed

import (
	"encoding/base64"
	"encoding/json"
)

// Phase is one of the retrieval strategies composing a feed. A session only
// ever moves forward through phases, with fallback terminal.
type Phase string

const (
	PhaseRelated  Phase = "related"
	PhaseProfile  Phase = "profile"
	PhaseFallback Phase = "fallback"
)

func validPhase(p Phase) bool {
	return p == PhaseRelated || p == PhaseProfile || p == PhaseFallback
}

// PageKey is the keyset position of the last row a page returned, used to
// resume `(created_at desc, id desc)` ordered queries without offsets.
// CreatedAt is unix microseconds: timezone free, and the full precision
// Postgres stores, so two rows created inside the same millisecond still
// resume on the right side of the boundary.
type PageKey struct {
	CreatedAt int64  `json:"createdAt"`
	Id        string `json:"id"`
}

// Cursor is the full resumption state of a paginated feed session,
// round-tripped through the client as an opaque token. Key positions the
// related and profile phases; once the session reaches the terminal
// fallback phase the plain chronological position is nested under Inner
// instead.
type Cursor struct {
	Phase Phase    `json:"phase"`
	Key   *PageKey `json:"key,omitempty"`
	Inner *PageKey `json:"innerCursor,omitempty"`
}

// position returns whichever keyset position applies to the cursor's phase.
func (c *Cursor) position() *PageKey {
	if c.Phase == PhaseFallback {
		return c.Inner
	}
	return c.Key
}

// EncodeCursor serializes a cursor into the opaque token shipped to
// clients.
func EncodeCursor(c *Cursor) string {
	data, err := json.Marshal(c)
	if err != nil {
		// Cursor only holds plain serializable fields, this cannot happen.
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCursor parses a client supplied token. Tokens travel through client
// storage and URLs and may come back stale, truncated or tampered with, so
// any token that fails to decode into a cursor with a recognized phase is
// treated as absent: DecodeCursor returns nil and never an error. Unknown
// fields are ignored for forward compatibility.
func DecodeCursor(token string) *Cursor {
	if token == "" {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil
	}
	if !validPhase(c.Phase) {
		return nil
	}
	return &c
}

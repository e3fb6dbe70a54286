package types

// Tag is a single event tag: an arbitrary-length array of strings whose
// first element names the tag ("p", "d", "l", "header", ...).
type Tag []string

// Key returns the tag's name (its first element), or "" if empty.
func (t Tag) Key() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Value returns the tag's first value (its second element), or "" if absent.
func (t Tag) Value() string {
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

// Event is the signed envelope every message, invite, invite response, and
// invite list travels as (spec.md SS6).
type Event struct {
	ID        string    `json:"id"`
	PubKey    PublicKey `json:"pubkey"`
	CreatedAt int64     `json:"created_at"`
	Kind      int       `json:"kind"`
	Tags      []Tag     `json:"tags"`
	Content   string    `json:"content"`
	Sig       []byte    `json:"sig"`
}

// Tag returns the value of the first tag matching key, and whether one was found.
func (e Event) Tag(key string) (string, bool) {
	for _, t := range e.Tags {
		if t.Key() == key {
			return t.Value(), true
		}
	}
	return "", false
}

// TagValues returns every value (second element) of tags matching key.
func (e Event) TagValues(key string) []string {
	var out []string
	for _, t := range e.Tags {
		if t.Key() == key {
			out = append(out, t.Value())
		}
	}
	return out
}

// InnerEvent is the plaintext payload a Session encrypts under a message
// key. Unlike Event it carries no id or signature: authenticity comes from
// the AEAD tag on the outer event that carries it, not from a signature of
// its own (spec.md SS4.2).
type InnerEvent struct {
	PubKey    PublicKey `json:"pubkey"`
	Content   string    `json:"content"`
	Kind      int       `json:"kind"`
	Tags      []Tag     `json:"tags"`
	CreatedAt int64     `json:"created_at"`
}

// Filter describes a subscription predicate over the event bus (spec.md SS6).
type Filter struct {
	Kinds   []int
	Authors []PublicKey
	Tags    map[string][]string // "#p" -> values, "#d" -> values, ...
}

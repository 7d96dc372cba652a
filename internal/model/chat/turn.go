package chat

import (
	"strings"
	"time"
)

const (
	userPrefix = "User: "
	aiPrefix   = "AI: "
)

// Turn is one exchange: the user's message and the reply it produced.
type Turn struct {
	User      string    `json:"user"`
	AI        string    `json:"ai"`
	CreatedAt time.Time `json:"createdAt"`
}

// Transcript is the ordered record of a session's turns.
type Transcript []Turn

// String renders the transcript as interleaved "User:" / "AI:" lines.
func (t Transcript) String() string {
	if len(t) == 0 {
		return ""
	}

	var b strings.Builder
	for i, turn := range t {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(userPrefix)
		b.WriteString(turn.User)
		b.WriteByte('\n')
		b.WriteString(aiPrefix)
		b.WriteString(turn.AI)
	}
	return b.String()
}

// Clone returns a copy that shares no backing array with t.
func (t Transcript) Clone() Transcript {
	if t == nil {
		return Transcript{}
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

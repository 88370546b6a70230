package models

import "time"

// VoiceSession is a synchronous voice call tied to a voice channel.
// EndedAt set means the session is terminal: joins are rejected and a new
// session must be started on the channel.
type VoiceSession struct {
	ID        int64      `json:"id,string"`
	ChannelID int64      `json:"channel_id,string"`
	StartedBy int64      `json:"started_by,string"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Ended reports whether the session has reached its terminal state.
func (s *VoiceSession) Ended() bool {
	return s.EndedAt != nil
}

// VoiceParticipant is one member of a session roster.
type VoiceParticipant struct {
	SessionID int64     `json:"session_id,string"`
	UserID    int64     `json:"user_id,string"`
	JoinedAt  time.Time `json:"joined_at"`
}

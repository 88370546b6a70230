package models

import "time"

type ChannelKind string

const (
	ChannelText         ChannelKind = "text"
	ChannelVoice        ChannelKind = "voice"
	ChannelAnnouncement ChannelKind = "announcement"
)

// Valid reports whether k is a known channel kind.
func (k ChannelKind) Valid() bool {
	switch k {
	case ChannelText, ChannelVoice, ChannelAnnouncement:
		return true
	}
	return false
}

type Channel struct {
	ID             int64       `json:"id,string"`
	CommunityID    int64       `json:"community_id,string"`
	Name           string      `json:"name"`
	Kind           ChannelKind `json:"kind"`
	Private        bool        `json:"private"`
	Position       int         `json:"position"`
	Topic          *string     `json:"topic,omitempty"`
	LastActivityAt time.Time   `json:"last_activity_at"`
}

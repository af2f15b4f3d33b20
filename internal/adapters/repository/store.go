// Package repository accumulates cutflow statistics across selection calls.
package repository

import (
	"context"
	"time"
)

// StepCount is the number of survivors after one cumulative cut.
type StepCount struct {
	Name   string `json:"name" yaml:"name"`
	Pairs  int64  `json:"pairs" yaml:"pairs"`
	Events int64  `json:"events" yaml:"events"`
}

// Cutflow is the accumulated record for one channel.
type Cutflow struct {
	Channel    string           `json:"channel" yaml:"channel"`
	Events     int64            `json:"events" yaml:"events"`
	Duplicates int64            `json:"duplicates" yaml:"duplicates"`
	Pairs      int64            `json:"pairs" yaml:"pairs"`
	Steps      []StepCount      `json:"steps" yaml:"steps"`
	Selected   int64            `json:"selected" yaml:"selected"`
	TieBreak   map[string]int64 `json:"tiebreak" yaml:"tiebreak"`
}

// Update is the contribution of one processed batch.
type Update struct {
	Channel    string
	Events     int64
	Duplicates int64
	Pairs      int64
	Steps      []StepCount
	Selected   int64
	TieBreak   map[string]int64
}

// Snapshot is an immutable view of every channel.
type Snapshot struct {
	Channels []Cutflow `json:"channels" yaml:"channels"`
	TakenAt  time.Time `json:"taken_at" yaml:"taken_at"`
}

// Store accumulates cutflows.
type Store interface {
	// Add merges u into the channel record. Step names must match the
	// ones already recorded for the channel, in order.
	Add(ctx context.Context, u Update) error

	// Channel returns one channel's record or ErrNotFound.
	Channel(ctx context.Context, name string) (Cutflow, error)

	// Snapshot returns the latest published view.
	Snapshot(ctx context.Context) Snapshot

	// Reset drops every record.
	Reset(ctx context.Context)
}

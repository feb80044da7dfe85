package models

import (
	"time"

	"github.com/google/uuid"
)

// Option is a value/label pair for catalog lookups
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

type PropertyTypeOption struct {
	Value    string   `json:"value" yaml:"value"`
	Label    string   `json:"label" yaml:"label"`
	Subtypes []Option `json:"subtypes,omitempty" yaml:"subtypes"`
}

// ProviderCheck records one availability probe
type ProviderCheck struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	ProviderID string        `json:"provider_id" db:"provider_id"`
	Available  bool          `json:"available" db:"available"`
	Latency    time.Duration `json:"latency" db:"latency_ms"`
	CheckedAt  time.Time     `json:"checked_at" db:"checked_at"`
}

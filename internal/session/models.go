package session

import (
	"encoding/json"
	"time"

	"github.com/ruizrica/spriteforge/pkg/models"
)

type Session struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Provider  string
	Model     string
}

// Generation is the audit row written for every settled generation. The
// image itself is never persisted.
type Generation struct {
	ID         string
	SessionID  string
	Kind       string // "style", "frame" or "regenerate"
	StyleID    string
	ActionID   string
	FrameIndex int
	Prompt     string
	Source     string
	Status     string
	Error      string
	Model      string
	Timestamp  time.Time
	Metadata   GenerationMetadata
}

const (
	KindStyle      = "style"
	KindFrame      = "frame"
	KindRegenerate = "regenerate"
)

// StyleGeneration builds the audit row for a settled style variant.
func StyleGeneration(v models.StyleVariant, prompt string) *Generation {
	return &Generation{
		Kind:    KindStyle,
		StyleID: string(v.ID),
		Prompt:  prompt,
		Source:  string(models.SourceOriginal),
		Status:  v.Result.Status().String(),
		Error:   v.Result.Err(),
	}
}

// FrameGeneration builds the audit row for a settled frame. kind is
// KindFrame for chain runs and KindRegenerate for single-frame edits.
func FrameGeneration(kind string, f models.ActionFrame) *Generation {
	return &Generation{
		Kind:       kind,
		StyleID:    string(f.StyleID),
		ActionID:   string(f.ActionID),
		FrameIndex: f.Index,
		Prompt:     f.Prompt,
		Source:     string(f.Source),
		Status:     f.Result.Status().String(),
		Error:      f.Result.Err(),
	}
}

type GenerationMetadata struct {
	Provider   string  `json:"provider,omitempty"`
	Size       string  `json:"size,omitempty"`
	Quality    string  `json:"quality,omitempty"`
	Cost       float64 `json:"cost,omitempty"`
	DurationMS int64   `json:"duration_ms,omitempty"`
}

func (m *GenerationMetadata) ToJSON() string {
	data, _ := json.Marshal(m)
	return string(data)
}

func ParseGenerationMetadata(data string) GenerationMetadata {
	var m GenerationMetadata
	if data != "" {
		json.Unmarshal([]byte(data), &m)
	}
	return m
}

package models

import "fmt"

type StyleID string

type ActionID string

// OriginalStyle is the identity style: the reference image itself.
const OriginalStyle StyleID = "original"

// InputSource records which artifact was fed into a frame generation.
type InputSource string

const (
	SourcePreviousFrame InputSource = "previous_frame"
	SourceStyledImage   InputSource = "styled_image"
	SourceOriginal      InputSource = "original"
)

type Status int

const (
	StatusPending Status = iota
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of one generation. A settled result carries
// exactly one of an image or an error message; the zero value is pending.
type Result struct {
	status Status
	image  *Image
	err    string
}

func Pending() Result {
	return Result{status: StatusPending}
}

// Succeeded returns a successful result. A nil or empty image is not a
// success and yields a failed result instead.
func Succeeded(img *Image) Result {
	if img.IsEmpty() {
		return Failed("no image data")
	}
	return Result{status: StatusSucceeded, image: img}
}

func Failed(msg string) Result {
	if msg == "" {
		msg = "generation failed"
	}
	return Result{status: StatusFailed, err: msg}
}

func (r Result) Status() Status { return r.status }

func (r Result) Image() *Image { return r.image }

func (r Result) Err() string { return r.err }

func (r Result) Settled() bool { return r.status != StatusPending }

func (r Result) HasImage() bool { return r.status == StatusSucceeded }

type StyleVariant struct {
	ID     StyleID
	Result Result
}

type FrameKey struct {
	ActionID ActionID
	StyleID  StyleID
	Index    int
}

func (k FrameKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.StyleID, k.ActionID, k.Index)
}

// ActionFrame is one frame of an animation chain. FromPrevious is true
// exactly when the frame was generated from the preceding frame's image.
type ActionFrame struct {
	ActionID     ActionID
	StyleID      StyleID
	Index        int
	Result       Result
	FromPrevious bool
	Source       InputSource
	Prompt       string
}

func (f ActionFrame) Key() FrameKey {
	return FrameKey{ActionID: f.ActionID, StyleID: f.StyleID, Index: f.Index}
}

// Name is the file stem used when the frame is saved.
func (f ActionFrame) Name() string {
	return fmt.Sprintf("%s_%s_frame_%02d", f.StyleID, f.ActionID, f.Index+1)
}

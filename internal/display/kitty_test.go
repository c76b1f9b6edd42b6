package display

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/ruizrica/spriteforge/pkg/models"
)

func pngImage(t *testing.T, w, h int) *models.Image {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return &models.Image{MIMEType: "image/png", Data: buf.Bytes()}
}

func TestKittyEncoder_Encode_Empty(t *testing.T) {
	var buf bytes.Buffer
	enc := NewKittyEncoder(&buf, 0)

	if err := enc.Encode(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := enc.Encode(&models.Image{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected empty output, got %q", buf.String())
	}
}

func TestKittyEncoder_Encode_SmallImage(t *testing.T) {
	var buf bytes.Buffer
	enc := NewKittyEncoder(&buf, 12)

	img := pngImage(t, 4, 4)
	if err := enc.Encode(img); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.HasPrefix(output, "\x1b_Ga=T,f=100,q=2,c=12;") {
		t.Errorf("unexpected header: %q", output[:min(len(output), 40)])
	}
	if !strings.HasSuffix(output, "\x1b\\") {
		t.Error("output should end with escape terminator")
	}
	if strings.Contains(output, "m=") {
		t.Error("single chunk should not carry a continuation flag")
	}
	if !strings.Contains(output, base64.StdEncoding.EncodeToString(img.Data)) {
		t.Error("output should contain base64 encoded data")
	}
}

func TestKittyEncoder_Encode_Chunked(t *testing.T) {
	var buf bytes.Buffer
	enc := NewKittyEncoder(&buf, 0)

	img := &models.Image{MIMEType: "image/png", Data: bytes.Repeat([]byte{7}, 5000)}
	if err := enc.Encode(img); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if n := strings.Count(output, "\x1b_G"); n != 2 {
		t.Errorf("expected 2 chunks, got %d", n)
	}
	if !strings.Contains(output, "a=T,f=100,q=2,m=1;") {
		t.Error("first chunk should carry the header and more-data flag")
	}
	if !strings.Contains(output, "\x1b_Gm=0;") {
		t.Error("last chunk should carry the final flag")
	}
	if strings.Contains(output, "c=") {
		t.Error("columns should be omitted when zero")
	}
}

func TestKittyEncoder_Encode_ConvertsToPNG(t *testing.T) {
	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	enc := NewKittyEncoder(&buf, 0)
	if err := enc.Encode(&models.Image{MIMEType: "image/jpeg", Data: jpg.Bytes()}); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	payload := strings.TrimSuffix(strings.SplitN(buf.String(), ";", 2)[1], "\x1b\\")
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatalf("payload not base64: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte("\x89PNG")) {
		t.Error("jpeg should be transmitted as png")
	}

	if err := enc.Encode(&models.Image{MIMEType: "image/jpeg", Data: []byte("junk")}); err == nil {
		t.Error("Encode() of undecodable jpeg should fail")
	}
}

func TestSplitIntoChunks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		size     int
		expected []string
	}{
		{"empty string", "", 10, nil},
		{"smaller than chunk", "hello", 10, []string{"hello"}},
		{"exact chunk size", "hello", 5, []string{"hello"}},
		{"multiple chunks", "hello world", 5, []string{"hello", " worl", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitIntoChunks(tt.input, tt.size)
			if len(result) != len(tt.expected) {
				t.Fatalf("expected %d chunks, got %d", len(tt.expected), len(result))
			}
			for i, chunk := range result {
				if chunk != tt.expected[i] {
					t.Errorf("chunk %d: expected %q, got %q", i, tt.expected[i], chunk)
				}
			}
		})
	}
}

func TestKittyEncoder_WriteError(t *testing.T) {
	enc := NewKittyEncoder(&errorWriter{err: bytes.ErrTooLarge}, 0)
	if err := enc.Encode(pngImage(t, 2, 2)); err == nil {
		t.Error("expected error from failing writer")
	}
}

type errorWriter struct {
	err error
}

func (w *errorWriter) Write(p []byte) (int, error) {
	return 0, w.err
}

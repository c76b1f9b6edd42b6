package display

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	imgutil "github.com/ruizrica/spriteforge/internal/image"
	"github.com/ruizrica/spriteforge/pkg/models"
)

const (
	escapeStart = "\x1b_G"
	escapeEnd   = "\x1b\\"
	chunkSize   = 4096
)

// KittyEncoder writes images using the kitty graphics protocol. Only PNG
// is transmitted; other formats are converted first.
type KittyEncoder struct {
	out     io.Writer
	columns int
}

// NewKittyEncoder returns an encoder that scales each image to columns
// terminal cells wide. columns <= 0 keeps the native size.
func NewKittyEncoder(out io.Writer, columns int) *KittyEncoder {
	return &KittyEncoder{out: out, columns: columns}
}

func (e *KittyEncoder) Encode(img *models.Image) error {
	if img.IsEmpty() {
		return nil
	}

	data := img.Data
	if img.MIMEType != "image/png" {
		converted, err := imgutil.ToPNG(img)
		if err != nil {
			return err
		}
		data = converted.Data
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	chunks := splitIntoChunks(encoded, chunkSize)

	for i, chunk := range chunks {
		var params []string
		if i == 0 {
			params = append(params, "a=T", "f=100", "q=2")
			if e.columns > 0 {
				params = append(params, fmt.Sprintf("c=%d", e.columns))
			}
		}
		if len(chunks) > 1 {
			if i == len(chunks)-1 {
				params = append(params, "m=0")
			} else {
				params = append(params, "m=1")
			}
		}

		if _, err := fmt.Fprintf(e.out, "%s%s;%s%s", escapeStart, strings.Join(params, ","), chunk, escapeEnd); err != nil {
			return err
		}
	}

	return nil
}

func splitIntoChunks(s string, size int) []string {
	var chunks []string
	for len(s) > 0 {
		n := min(size, len(s))
		chunks = append(chunks, s[:n])
		s = s[n:]
	}
	return chunks
}

package batch

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ruizrica/spriteforge/internal/security"
	"github.com/ruizrica/spriteforge/pkg/models"
)

var ErrNoJobs = errors.New("no jobs found in file")

// Item is one animation chain to generate. Frames == 0 means every frame
// of the action.
type Item struct {
	Index  int
	Style  models.StyleID
	Action models.ActionID
	Frames int
}

func (i Item) Key() string {
	return string(i.Style) + "/" + string(i.Action)
}

type jsonItem struct {
	Style  string `json:"style"`
	Action string `json:"action"`
	Frames int    `json:"frames,omitempty"`
}

func ParseFile(path string) ([]Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return ParseJSON(file)
	case ".txt", "":
		return ParseText(file)
	default:
		return nil, fmt.Errorf("unsupported file format %q: use .txt or .json", ext)
	}
}

// ParseText reads one job per line as "<style> <action> [frames]". Blank
// lines and lines starting with # are skipped.
func ParseText(r io.Reader) ([]Item, error) {
	var items []Item
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("line %d: expected \"<style> <action> [frames]\"", lineNo)
		}

		item := Item{
			Index:  len(items) + 1,
			Style:  models.StyleID(fields[0]),
			Action: models.ActionID(fields[1]),
		}
		if len(fields) == 3 {
			n, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid frame count %q", lineNo, fields[2])
			}
			item.Frames = n
		}
		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if err := validate(items); err != nil {
		return nil, err
	}
	return items, nil
}

func ParseJSON(r io.Reader) ([]Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var jsonItems []jsonItem
	if err := json.Unmarshal(data, &jsonItems); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	items := make([]Item, len(jsonItems))
	for i, ji := range jsonItems {
		items[i] = Item{
			Index:  i + 1,
			Style:  models.StyleID(strings.TrimSpace(ji.Style)),
			Action: models.ActionID(strings.TrimSpace(ji.Action)),
			Frames: ji.Frames,
		}
	}

	if err := validate(items); err != nil {
		return nil, err
	}
	return items, nil
}

// validate rejects malformed items and repeated (style, action) pairs:
// two chains for the same key would overwrite each other's frames.
func validate(items []Item) error {
	if len(items) == 0 {
		return ErrNoJobs
	}

	seen := make(map[string]int, len(items))
	for _, it := range items {
		if err := security.ValidateIdentifier(string(it.Style)); err != nil {
			return fmt.Errorf("item %d: style: %w", it.Index, err)
		}
		if err := security.ValidateIdentifier(string(it.Action)); err != nil {
			return fmt.Errorf("item %d: action: %w", it.Index, err)
		}
		if it.Frames < 0 {
			return fmt.Errorf("item %d: frame count must not be negative", it.Index)
		}
		if prev, ok := seen[it.Key()]; ok {
			return fmt.Errorf("item %d duplicates item %d (%s)", it.Index, prev, it.Key())
		}
		seen[it.Key()] = it.Index
	}
	return nil
}

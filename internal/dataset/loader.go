package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 1 << 20 // 1MB

// Load reads a dataset file, dispatching on extension. Supported formats:
// .json (array of examples), .jsonl (one example per line), .csv
// (context/response columns), and .pdf (User:/Assistant: transcript).
func Load(path string) ([]Example, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(path)
	case ".jsonl":
		return LoadJSONL(path)
	case ".csv":
		return LoadCSV(path)
	case ".pdf":
		return LoadPDF(path)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", filepath.Ext(path))
	}
}

// LoadJSON reads a dataset stored as a single JSON array of examples.
func LoadJSON(path string) ([]Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	var examples []Example
	if err := json.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("parsing dataset: %w", err)
	}
	return examples, nil
}

// LoadJSONL reads a JSON-lines dataset. Blank lines are skipped; a
// malformed line fails the whole load with its line number.
func LoadJSONL(path string) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	var examples []Example
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var ex Example
		if err := json.Unmarshal([]byte(text), &ex); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", line, err)
		}
		examples = append(examples, ex)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	return examples, nil
}

// LoadCSV reads a CSV dataset. The header row names the columns; context
// and response are required, emotion is optional.
func LoadCSV(path string) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	contextCol, ok := cols["context"]
	if !ok {
		return nil, fmt.Errorf("csv missing required column %q", "context")
	}
	responseCol, ok := cols["response"]
	if !ok {
		return nil, fmt.Errorf("csv missing required column %q", "response")
	}
	emotionCol, hasEmotion := cols["emotion"]

	var examples []Example
	for _, record := range records[1:] {
		ex := Example{}
		if contextCol < len(record) {
			ex.Context = record[contextCol]
		}
		if responseCol < len(record) {
			ex.Response = record[responseCol]
		}
		if hasEmotion && emotionCol < len(record) && record[emotionCol] != "" {
			ex.EmotionTags = []string{record[emotionCol]}
		}
		examples = append(examples, ex)
	}
	return examples, nil
}

// LoadPDF extracts a conversation transcript from a PDF. The extracted
// text is segmented on "User:" and "Assistant:" markers; each user turn
// becomes a context and the following assistant turn its response.
func LoadPDF(path string) ([]Example, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extracting pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, fmt.Errorf("reading pdf text: %w", err)
	}

	return parseTranscript(buf.String()), nil
}

// parseTranscript pairs User:/Assistant: turns into examples. Text before
// the first marker is ignored; a trailing user turn without a response
// yields an example with an empty response, which validation will flag.
func parseTranscript(text string) []Example {
	type turn struct {
		role    string
		content string
	}

	var turns []turn
	rest := text
	for {
		userIdx := strings.Index(rest, "User:")
		assistantIdx := strings.Index(rest, "Assistant:")
		if userIdx == -1 && assistantIdx == -1 {
			break
		}

		var role, marker string
		var idx int
		if assistantIdx == -1 || (userIdx != -1 && userIdx < assistantIdx) {
			role, marker, idx = "user", "User:", userIdx
		} else {
			role, marker, idx = "assistant", "Assistant:", assistantIdx
		}

		rest = rest[idx+len(marker):]
		end := len(rest)
		if next := strings.Index(rest, "User:"); next != -1 && next < end {
			end = next
		}
		if next := strings.Index(rest, "Assistant:"); next != -1 && next < end {
			end = next
		}
		turns = append(turns, turn{role: role, content: strings.TrimSpace(rest[:end])})
		rest = rest[end:]
	}

	var examples []Example
	for i := 0; i < len(turns); i++ {
		if turns[i].role != "user" {
			continue
		}
		ex := Example{Context: turns[i].content}
		if i+1 < len(turns) && turns[i+1].role == "assistant" {
			ex.Response = turns[i+1].content
			i++
		}
		examples = append(examples, ex)
	}
	return examples
}

package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// tuple is the intermediate (text, optional frequency, optional is_idiom)
// shape spec.md §4.2 step 3 describes.
type tuple struct {
	Text      string
	Frequency float64
	IsIdiom   bool
}

// ParseError corresponds to spec.md's ParseError kind: malformed source
// payload. It is source-local and the caller skips the source on it.
type ParseError struct {
	Format Format
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ingest: parse error (%s): %s", e.Format, e.Reason)
}

func parse(format Format, payload []byte) ([]tuple, error) {
	switch format {
	case FormatTextLines:
		return parseTextLines(payload), nil
	case FormatFrequencyList:
		return parseFrequencyList(payload), nil
	case FormatJSONIdioms:
		return parseJSONIdioms(payload)
	case FormatJSONDict:
		return parseJSONDict(payload)
	case FormatJSONArray:
		return parseJSONArray(payload)
	case FormatCSVIdioms:
		return parseCSVIdioms(payload)
	case FormatDiceware:
		return parseDiceware(payload), nil
	default:
		return nil, &ParseError{Format: format, Reason: "unsupported format"}
	}
}

// parseTextLines: UTF-8 text; ignore empty lines and lines beginning with
// '#'; one entry per non-ignored line.
func parseTextLines(payload []byte) []tuple {
	var out []tuple
	sc := bufio.NewScanner(bytes.NewReader(payload))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, tuple{Text: line})
	}
	return out
}

// parseFrequencyList: whitespace-separated; first token is the word, second
// token parsed as float frequency; subsequent tokens ignored.
func parseFrequencyList(payload []byte) []tuple {
	var out []tuple
	sc := bufio.NewScanner(bytes.NewReader(payload))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		t := tuple{Text: fields[0]}
		if len(fields) >= 2 {
			if f, err := strconv.ParseFloat(fields[1], 64); err == nil {
				t.Frequency = f
			}
		}
		out = append(out, t)
	}
	return out
}

// parseJSONIdioms: a JSON array of strings, or an object with key "idioms"
// whose value is an array; array elements may be plain strings or objects
// carrying an "idiom"/"phrase"/"text" field.
func parseJSONIdioms(payload []byte) ([]tuple, error) {
	var asArray []json.RawMessage
	if err := json.Unmarshal(payload, &asArray); err == nil {
		return rawIdiomElements(asArray)
	}
	var asObject struct {
		Idioms []json.RawMessage `json:"idioms"`
	}
	if err := json.Unmarshal(payload, &asObject); err != nil {
		return nil, &ParseError{Format: FormatJSONIdioms, Reason: err.Error()}
	}
	return rawIdiomElements(asObject.Idioms)
}

func rawIdiomElements(elements []json.RawMessage) ([]tuple, error) {
	out := make([]tuple, 0, len(elements))
	for _, raw := range elements {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out = append(out, tuple{Text: s, IsIdiom: true})
			continue
		}
		var obj struct {
			Idiom  string `json:"idiom"`
			Phrase string `json:"phrase"`
			Text   string `json:"text"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, &ParseError{Format: FormatJSONIdioms, Reason: err.Error()}
		}
		text := firstNonEmpty(obj.Idiom, obj.Phrase, obj.Text)
		if text == "" {
			continue
		}
		out = append(out, tuple{Text: text, IsIdiom: true})
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// parseJSONDict: a JSON object whose keys are entries.
func parseJSONDict(payload []byte) ([]tuple, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, &ParseError{Format: FormatJSONDict, Reason: err.Error()}
	}
	out := make([]tuple, 0, len(m))
	for k := range m {
		out = append(out, tuple{Text: k})
	}
	return out, nil
}

// parseJSONArray: a JSON array of strings.
func parseJSONArray(payload []byte) ([]tuple, error) {
	var arr []string
	if err := json.Unmarshal(payload, &arr); err != nil {
		return nil, &ParseError{Format: FormatJSONArray, Reason: err.Error()}
	}
	out := make([]tuple, 0, len(arr))
	for _, s := range arr {
		out = append(out, tuple{Text: s})
	}
	return out, nil
}

// parseCSVIdioms: CSV with the idiom text in the first column; remaining
// columns ignored. A header row ("text"/"idiom"/"phrase") is skipped.
func parseCSVIdioms(payload []byte) ([]tuple, error) {
	r := csv.NewReader(bytes.NewReader(payload))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, &ParseError{Format: FormatCSVIdioms, Reason: err.Error()}
	}
	out := make([]tuple, 0, len(records))
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		first := strings.TrimSpace(rec[0])
		if i == 0 {
			switch strings.ToLower(first) {
			case "text", "idiom", "phrase":
				continue
			}
		}
		if first == "" {
			continue
		}
		out = append(out, tuple{Text: first, IsIdiom: true})
	}
	return out, nil
}

// parseDiceware: whitespace-separated "index word" pairs, one per line
// (the standard diceware wordlist shape); only the word is kept.
func parseDiceware(payload []byte) []tuple {
	var out []tuple
	sc := bufio.NewScanner(bytes.NewReader(payload))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		word := fields[0]
		if len(fields) >= 2 {
			word = fields[len(fields)-1]
		}
		out = append(out, tuple{Text: word})
	}
	return out
}

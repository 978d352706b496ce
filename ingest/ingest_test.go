package ingest

import (
	"testing"

	"github.com/lexsearchio/lexsearch/corpus"
)

func TestParseTextLines(t *testing.T) {
	out, err := parse(FormatTextLines, []byte("hello\n# comment\n\nworld\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(out) != 2 || out[0].Text != "hello" || out[1].Text != "world" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestParseFrequencyList(t *testing.T) {
	out, err := parse(FormatFrequencyList, []byte("the 120.5 extra\ncat 3\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(out) != 2 || out[0].Frequency != 120.5 || out[1].Frequency != 3 {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestParseJSONIdiomsArray(t *testing.T) {
	out, err := parse(FormatJSONIdioms, []byte(`["en coulisse", "a piece of cake"]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(out) != 2 || !out[0].IsIdiom {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestParseJSONIdiomsObjectWithFields(t *testing.T) {
	out, err := parse(FormatJSONIdioms, []byte(`{"idioms":[{"idiom":"break the ice"},{"phrase":"spill the beans"}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 idioms, got %+v", out)
	}
}

func TestParseJSONDict(t *testing.T) {
	out, err := parse(FormatJSONDict, []byte(`{"hello":1,"world":2}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 entries, got %+v", out)
	}
}

func TestParseCSVIdiomsSkipsHeader(t *testing.T) {
	out, err := parse(FormatCSVIdioms, []byte("text\nbreak the ice\nspill the beans\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 rows after header skip, got %+v", out)
	}
}

func TestAcceptableFilters(t *testing.T) {
	cases := map[string]bool{
		"":        false,
		"a":       false,
		"hello":   true,
		"a-b":     true,
		"5":       false,
		"ab":      true,
		"hi there": true,
	}
	for in, want := range cases {
		if got := acceptable(in); got != want {
			t.Errorf("acceptable(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSourceDescriptorValidate(t *testing.T) {
	good := SourceDescriptor{Name: "n", URL: "http://x", Format: FormatTextLines, Language: corpus.LangEnglish}
	if err := good.validate(); err != nil {
		t.Errorf("expected valid descriptor, got %v", err)
	}
	bad := SourceDescriptor{Name: "n", URL: "http://x", Format: "nope", Language: corpus.LangEnglish}
	if err := bad.validate(); err == nil {
		t.Errorf("expected error for unknown format")
	}
}

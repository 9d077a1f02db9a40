package engine

import (
	"errors"
	"testing"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"prose around", `Sure! Here it is: {"a":1} Hope this helps.`, `{"a":1}`},
		{"nested", `x {"a":{"b":[1,2]}} y`, `{"a":{"b":[1,2]}}`},
		{"brace in string", `{"a":"}{"}`, `{"a":"}{"}`},
		{"escaped quote", `{"a":"say \"}\""}`, `{"a":"say \"}\""}`},
		{"unbalanced then valid", `{ broken {"ok":true}`, `{"ok":true}`},
		{"none", "no json here", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSONObject(tt.raw); got != tt.want {
				t.Errorf("ExtractJSONObject(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

type decodeTarget struct {
	Title string   `json:"title"`
	Must  []string `json:"must"`
}

func TestDecodeJSON(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		got, err := DecodeJSON[decodeTarget](Completion{Text: `{"title":"Engineer","must":["Go"]}`}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Title != "Engineer" || len(got.Must) != 1 {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("fenced free text", func(t *testing.T) {
		got, err := DecodeJSON[decodeTarget](Completion{Text: "```json\n{\"title\":\"SRE\"}\n```"}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Title != "SRE" {
			t.Errorf("Title = %q, want SRE", got.Title)
		}
	})

	t.Run("chatty free text", func(t *testing.T) {
		got, err := DecodeJSON[decodeTarget](Completion{Text: `Here you go: {"title":"Dev"} done`}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Title != "Dev" {
			t.Errorf("Title = %q, want Dev", got.Title)
		}
	})

	t.Run("structured is strict", func(t *testing.T) {
		_, err := DecodeJSON[decodeTarget](Completion{Text: `Here you go: {"title":"Dev"}`, Structured: true}, nil)
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("err = %v, want ErrMalformedResponse", err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		_, err := DecodeJSON[decodeTarget](Completion{Text: "  "}, nil)
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("err = %v, want ErrMalformedResponse", err)
		}
	})

	t.Run("no object", func(t *testing.T) {
		_, err := DecodeJSON[decodeTarget](Completion{Text: "I cannot help with that."}, nil)
		if CauseOf(err) != CauseMalformedResponse {
			t.Errorf("cause = %q, want malformed", CauseOf(err))
		}
	})

	t.Run("refusal object misses required keys", func(t *testing.T) {
		for _, c := range []Completion{
			{Text: `{"error":"I cannot help with that"}`, Structured: true},
			{Text: `Sorry: {"error":"I cannot help with that"}`},
		} {
			_, err := DecodeJSON[decodeTarget](c, decodeSchema)
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("DecodeJSON(%q) err = %v, want ErrMalformedResponse", c.Text, err)
			}
		}
	})

	t.Run("required keys present", func(t *testing.T) {
		got, err := DecodeJSON[decodeTarget](Completion{Text: `{"title":"Dev","must":null}`, Structured: true}, decodeSchema)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Title != "Dev" {
			t.Errorf("Title = %q, want Dev", got.Title)
		}
	})
}

var decodeSchema = &Schema{
	Type: TypeObject,
	Properties: map[string]*Schema{
		"title": {Type: TypeString},
		"must":  {Type: TypeArray, Items: &Schema{Type: TypeString}},
		"roles": {Type: TypeArray, Items: &Schema{Type: TypeObject, Required: []string{"name"}}},
	},
	Required: []string{"title", "must"},
}

func TestCheckRequiredNested(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"complete", `{"title":"a","must":[],"roles":[{"name":"x"}]}`, true},
		{"missing top level", `{"title":"a"}`, false},
		{"missing in array item", `{"title":"a","must":[],"roles":[{"name":"x"},{}]}`, false},
		{"not an object", `["title"]`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkRequired([]byte(tt.raw), decodeSchema, "reply")
			if (err == nil) != tt.ok {
				t.Errorf("checkRequired(%s) = %v, want ok=%v", tt.raw, err, tt.ok)
			}
		})
	}
}

func TestStripFences(t *testing.T) {
	if got := stripFences("```json\n{}\n```"); got != "{}" {
		t.Errorf("stripFences = %q", got)
	}
	if got := stripFences("  {} "); got != "{}" {
		t.Errorf("stripFences = %q", got)
	}
}

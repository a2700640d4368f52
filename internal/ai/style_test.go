package ai

import (
	"encoding/json"
	"testing"
)

func TestParseStyle(t *testing.T) {
	tests := []struct {
		in   string
		want Style
	}{
		{"typescript", StyleTypeScript},
		{"TS", StyleTypeScript},
		{"python", StylePython},
		{"py", StylePython},
		{"ruby", StyleRuby},
		{"rb", StyleRuby},
		{"human", StyleHuman},
		{"plain", StyleHuman},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStyle(tt.in)
			if err != nil {
				t.Fatalf("ParseStyle(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseStyle(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	if _, err := ParseStyle("cobol"); err == nil {
		t.Error("Expected error for unknown style")
	}
}

func TestStyle_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(struct {
		Style Style `json:"style"`
	}{StylePython})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"style":"python"}` {
		t.Errorf("Unexpected JSON: %s", data)
	}

	var decoded struct {
		Style Style `json:"style"`
	}
	if err := json.Unmarshal([]byte(`{"style":"rb"}`), &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Style != StyleRuby {
		t.Errorf("Expected ruby, got %v", decoded.Style)
	}
}

func TestStyleFromQuery(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantQuery string
		wantStyle Style
		wantFound bool
	}{
		{"leading keyword", "python list files", "list files", StylePython, true},
		{"trailing keyword", "list files ruby", "list files", StyleRuby, true},
		{"short alias", "ts show disk usage", "show disk usage", StyleTypeScript, true},
		{"human", "human find big files", "find big files", StyleHuman, true},
		{"no keyword", "list files", "list files", StyleTypeScript, false},
		{"keyword in middle", "list python files here", "list python files here", StyleTypeScript, false},
		{"single word", "python", "python", StyleTypeScript, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, style, found := StyleFromQuery(tt.query)
			if q != tt.wantQuery || style != tt.wantStyle || found != tt.wantFound {
				t.Errorf("StyleFromQuery(%q) = (%q, %v, %v), want (%q, %v, %v)",
					tt.query, q, style, found, tt.wantQuery, tt.wantStyle, tt.wantFound)
			}
		})
	}
}

package ipc

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai"
)

func TestRequest_WireFormat(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"command", CommandRequest("list files"), `{"type":"command","query":"list files"}`},
		{"explain", ExplainRequest("ls -la", ai.StylePython), `{"type":"explain","command":"ls -la","style":"python"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.req)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, data)
			}
		})
	}
}

func TestResponse_WireFormat(t *testing.T) {
	data, _ := json.Marshal(OK("ls"))
	if string(data) != `{"success":true,"result":"ls","error":null}` {
		t.Errorf("Unexpected OK encoding: %s", data)
	}

	data, _ = json.Marshal(Fail("boom"))
	if string(data) != `{"success":false,"result":null,"error":"boom"}` {
		t.Errorf("Unexpected Fail encoding: %s", data)
	}
}

func TestFail_NeverEmpty(t *testing.T) {
	resp := Fail("  ")
	if resp.Error == nil || *resp.Error == "" {
		t.Error("Expected non-empty error text")
	}
}

func TestResponse_Value(t *testing.T) {
	v, err := OK("").Value()
	if err != nil || v != "" {
		t.Errorf("Expected empty success, got %q, %v", v, err)
	}

	_, err = Fail("quota").Value()
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Message != "quota" {
		t.Errorf("Expected RemoteError(quota), got %v", err)
	}
}

func TestDecodeRequest_Malformed(t *testing.T) {
	inputs := []string{
		``,
		`{`,
		`null`,
		`[]`,
		`"command"`,
		`{}`,
		`{"type":""}`,
		`{"type":"shutdown"}`,
		`{"type":"command"}`,
		`{"type":"command","query":"   "}`,
		`{"type":"command","query":42}`,
		`{"type":"explain","command":"ls"}`,
		`{"type":"explain","style":"python"}`,
		`{"type":"explain","command":"ls","style":"cobol"}`,
		`{"type":7}`,
		"\x00\x01\x02",
	}

	for _, in := range inputs {
		if _, err := DecodeRequest([]byte(in)); !errors.Is(err, ErrProtocol) {
			t.Errorf("DecodeRequest(%q) = %v, want ErrProtocol", in, err)
		}
	}
}

func TestDecodeRequest_Valid(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"type":"explain","command":"ls -la","style":"rb"}` + "\n"))
	if err != nil {
		t.Fatalf("DecodeRequest failed: %v", err)
	}
	if req.Command != "ls -la" || req.Style == nil || *req.Style != ai.StyleRuby {
		t.Errorf("Unexpected request: %+v", req)
	}
}

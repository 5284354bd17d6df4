package lsp

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"jls/internal/state"
)

func TestSinkDropsWhenFull(t *testing.T) {
	var out bytes.Buffer
	sink := NewSink(NewConn(strings.NewReader(""), &out), 1, nil)

	version := 2
	sink.Publish("file:///a/A.java", &version, []state.Diagnostic{
		{Line: 3, Character: 1, Message: "boom", Severity: state.SeverityError, Source: "javac"},
	})
	sink.Publish("file:///a/B.java", nil, nil)
	sink.Publish("file:///a/C.java", nil, nil)

	if got := sink.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}

	sink.Start()
	sink.Close()
	sink.Publish("file:///a/D.java", nil, nil)
	if got := sink.Dropped(); got != 3 {
		t.Errorf("Dropped() after Close = %d, want 3", got)
	}

	frames := decodeFrames(t, out.Bytes())
	if len(frames) != 1 || frames[0].Method != "textDocument/publishDiagnostics" {
		t.Fatalf("frames = %+v, want one publishDiagnostics", frames)
	}
	var p PublishDiagnosticsParams
	if err := json.Unmarshal(frames[0].Params, &p); err != nil {
		t.Fatal(err)
	}
	if p.URI != "file:///a/A.java" || p.Version == nil || *p.Version != 2 || len(p.Diagnostics) != 1 {
		t.Errorf("published %+v", p)
	}
	if r := p.Diagnostics[0].Range; r.Start != r.End || r.Start != (Position{Line: 3, Character: 1}) {
		t.Errorf("range = %+v, want zero-width at 3:1", r)
	}
}

func TestSinkClearSendsEmptyArray(t *testing.T) {
	var out bytes.Buffer
	sink := NewSink(NewConn(strings.NewReader(""), &out), 0, nil)
	sink.Start()
	sink.Publish("file:///a/A.java", nil, []state.Diagnostic{})
	sink.Close()

	if !strings.Contains(out.String(), `"diagnostics":[]`) {
		t.Errorf("clear should send an empty array: %s", out.String())
	}
	if strings.Contains(out.String(), `"version"`) {
		t.Errorf("version should be omitted for unopened files: %s", out.String())
	}
}

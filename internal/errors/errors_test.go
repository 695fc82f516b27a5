package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "config error",
			code:    "E120",
			wantMsg: "Invalid configuration file",
			wantCat: CategoryConfig,
		},
		{
			name:    "server error",
			code:    "E160",
			wantMsg: "Server failed to start",
			wantCat: CategoryServer,
		},
		{
			name:    "protocol error",
			code:    "E181",
			wantMsg: "Handshake rejected",
			wantCat: CategoryProtocol,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestErrorString(t *testing.T) {
	err := New("E141")
	if got := err.Error(); got != "E141: Config file not found" {
		t.Errorf("Error() = %q", got)
	}

	err.Wrap(fs.ErrNotExist)
	if !strings.HasSuffix(err.Error(), fs.ErrNotExist.Error()) {
		t.Errorf("Error() = %q, want wrapped cause", err.Error())
	}
	if !stderrors.Is(err, fs.ErrNotExist) {
		t.Error("errors.Is should see the wrapped error")
	}

	if got := Newf(CategoryCLI, "flag %q is required", "addr").Error(); got != `flag "addr" is required` {
		t.Errorf("Newf Error() = %q", got)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E120") != nil {
		t.Error("FromError(nil) should be nil")
	}

	coded := New("E122")
	if FromError(coded, "E120") != coded {
		t.Error("FromError should return an existing *Error unchanged")
	}

	plain := stderrors.New("disk full")
	wrapped := FromError(plain, "E120")
	if wrapped.Code != "E120" || wrapped.Unwrap() != plain {
		t.Errorf("FromError = %+v", wrapped)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E141").
		WithDetail("No screenobserver.json found in /srv/app").
		WithSuggestion("Run 'screenobserver init'")

	out := err.Format()
	for _, want := range []string{
		"ERROR E141: Config file not found",
		"No screenobserver.json found in /srv/app",
		"Hint: Run 'screenobserver init'",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}

	if got := err.FormatCompact(); got != "E141: Config file not found" {
		t.Errorf("FormatCompact() = %q", got)
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Fprint(&buf, stderrors.New("plain failure"))
	if !strings.Contains(buf.String(), "ERROR: plain failure") {
		t.Errorf("Fprint plain = %q", buf.String())
	}

	buf.Reset()
	Fprint(&buf, New("E160"))
	if !strings.Contains(buf.String(), "ERROR E160") {
		t.Errorf("Fprint coded = %q", buf.String())
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six seven", 10)
	for _, line := range lines {
		if len(line) > 10 {
			t.Errorf("line %q exceeds width", line)
		}
	}
	if strings.Join(lines, " ") != "one two three four five six seven" {
		t.Errorf("wrapText lost words: %v", lines)
	}
	if wrapText("", 10) != nil {
		t.Error("empty text should produce no lines")
	}
}

func TestRegistry(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Fatal("registry should not be empty")
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Errorf("codes not sorted: %s before %s", codes[i-1], codes[i])
		}
	}
	for _, code := range codes {
		tmpl, ok := GetTemplate(code)
		if !ok || tmpl.Message == "" || tmpl.Category == "" {
			t.Errorf("template %s incomplete: %+v", code, tmpl)
		}
	}
}

func TestHasCode(t *testing.T) {
	inner := New("E141")
	outer := New("E160").Wrap(inner)

	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{"direct", inner, "E141", true},
		{"wrapped", outer, "E141", true},
		{"outer", outer, "E160", true},
		{"absent", outer, "E122", false},
		{"wrapped by fmt", fmt.Errorf("load: %w", inner), "E141", true},
		{"plain", io.EOF, "E141", false},
		{"nil", nil, "E141", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasCode(tt.err, tt.code); got != tt.want {
				t.Errorf("HasCode(%v, %s) = %v, want %v", tt.err, tt.code, got, tt.want)
			}
		})
	}
}

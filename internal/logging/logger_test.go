package logging

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func TestSecretRedaction(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bearer token is redacted",
			input:    "eyJhbGciOiJSUzI1NiJ9.payload.sig",
			expected: "[REDACTED]",
		},
		{
			name:     "empty secret is still redacted",
			input:    "",
			expected: "[REDACTED]",
		},
		{
			name:     "workspace token is redacted",
			input:    "dapi1234567890abcdef",
			expected: "[REDACTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Secret(tt.input).String(); got != tt.expected {
				t.Errorf("Secret(%q).String() = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSecretGoString(t *testing.T) {
	s := Secret("dapi-super-secret")
	if got := fmt.Sprintf("%#v", s); !strings.Contains(got, "[REDACTED]") {
		t.Errorf("%%#v leaked the secret: %q", got)
	}
	if got := fmt.Sprintf("%s", s); got != "[REDACTED]" {
		t.Errorf("%%s leaked the secret: %q", got)
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(true, true)
	logger.SetOutput(&buf)

	logger.Info("minted credential for %s", "instance-a")
	logger.Warn("rotation failed, retrying next interval")
	logger.Error("control plane unreachable")
	logger.Debug("cache expires in %ds", 300)

	out := buf.String()
	for _, want := range []string{
		"✓ minted credential for instance-a",
		"⚠ rotation failed, retrying next interval",
		"✗ control plane unreachable",
		"[DEBUG] cache expires in 300s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDebugSuppressedByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := New(false, true)
	logger.SetOutput(&buf)

	logger.Debug("pool stats: %d in use", 7)

	if buf.Len() != 0 {
		t.Errorf("debug line emitted with debug disabled: %q", buf.String())
	}
}

func TestColorToggle(t *testing.T) {
	var buf bytes.Buffer
	logger := New(false, false)
	logger.SetOutput(&buf)

	logger.Info("colored line")
	if !strings.Contains(buf.String(), "\033[32m") {
		t.Errorf("expected ANSI color codes, got %q", buf.String())
	}

	buf.Reset()
	plain := New(false, true)
	plain.SetOutput(&buf)
	plain.Info("plain line")
	if strings.Contains(buf.String(), "\033[") {
		t.Errorf("unexpected ANSI codes with noColor: %q", buf.String())
	}
}

func TestSecretNeverReachesOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(true, true)
	logger.SetOutput(&buf)

	token := "dapi-0123456789abcdef"
	logger.Info("using token %s", Secret(token))
	logger.Debug("raw credential %v", Secret(token))

	if strings.Contains(buf.String(), token) {
		t.Fatalf("secret value leaked into log output:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "[REDACTED]") {
		t.Errorf("expected redaction marker in output:\n%s", buf.String())
	}
}

func TestRedactFunction(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		secrets  []string
		expected string
	}{
		{
			name:     "password scrubbed from DSN",
			input:    "host=db.example.com user=svc password=hunter22 sslmode=require",
			secrets:  []string{"hunter22"},
			expected: "host=db.example.com user=svc password=[REDACTED] sslmode=require",
		},
		{
			name:     "multiple values scrubbed",
			input:    "token=dapi123456 refresh=tok789012",
			secrets:  []string{"dapi123456", "tok789012"},
			expected: "token=[REDACTED] refresh=[REDACTED]",
		},
		{
			name:     "nothing to scrub",
			input:    "concurrency=10 iterations=50",
			secrets:  []string{},
			expected: "concurrency=10 iterations=50",
		},
		{
			name:     "empty secret ignored",
			input:    "plain text",
			secrets:  []string{""},
			expected: "plain text",
		},
		{
			name:     "short values left alone",
			input:    "port=5432 env=dev",
			secrets:  []string{"dev"},
			expected: "port=5432 env=dev",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Redact(tt.input, tt.secrets); got != tt.expected {
				t.Errorf("Redact() = %q, want %q", got, tt.expected)
			}
		})
	}
}

package adapter

import (
	"bytes"
	"context"
	"testing"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

// MockAdapterLogger is the logger used by adapter tests
type MockAdapterLogger struct{}

func NewMockAdapterLogger() *MockAdapterLogger { return &MockAdapterLogger{} }

func (m *MockAdapterLogger) Info(msg string, fields ...interface{})             {}
func (m *MockAdapterLogger) Error(msg string, err error, fields ...interface{}) {}
func (m *MockAdapterLogger) Debug(msg string, fields ...interface{})            {}
func (m *MockAdapterLogger) Warn(msg string, fields ...interface{})             {}

func TestHTMLToText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			"paragraphs become lines",
			"<p>first</p><p>second</p>",
			"first\nsecond",
		},
		{
			"scripts and styles are dropped",
			"<style>p { color: red }</style><p>kept</p><script>alert(1)</script>",
			"kept",
		},
		{
			"entities are decoded",
			"<p>a &amp; b &lt;ok&gt;</p>",
			"a & b <ok>",
		},
		{
			"whitespace is collapsed",
			"<div>  spaced    out  </div>",
			"spaced out",
		},
		{
			"br breaks lines",
			"one<br/>two",
			"one\ntwo",
		},
	}
	for _, tc := range cases {
		if got := htmlToText(tc.in); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestHTMLConverter_Convert(t *testing.T) {
	conv := NewHTMLConverter(NewMockAdapterLogger())
	out, err := conv.Convert(context.Background(), domain.InputFile{
		Name: "content.html",
		Data: []byte("<h1>Title</h1><p>Body text</p>"),
	})
	if err != nil {
		t.Fatalf("expected conversion to succeed, got %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("expected a PDF, got prefix %q", out[:8])
	}
}

func TestHTMLConverter_Convert_NoText(t *testing.T) {
	conv := NewHTMLConverter(NewMockAdapterLogger())
	_, err := conv.Convert(context.Background(), domain.InputFile{
		Name: "content.html",
		Data: []byte("<div><style>body{}</style></div>"),
	})
	if !apperrors.IsKind(err, apperrors.KindInvalidRequest) {
		t.Fatalf("expected invalid_request, got %v", err)
	}
}

func TestHTMLConverter_Convert_CanceledContext(t *testing.T) {
	conv := NewHTMLConverter(NewMockAdapterLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := conv.Convert(ctx, domain.InputFile{Data: []byte("<p>hi</p>")}); err == nil {
		t.Fatal("expected a context error")
	}
}

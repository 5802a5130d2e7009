package service

import (
	"bytes"
	"errors"
	"testing"

	apperrors "pdf-workbench/pkg/errors"
)

// mockTextExtractor serves canned page texts keyed by input bytes.
type mockTextExtractor struct {
	texts map[string][]string
	err   error
}

func (m *mockTextExtractor) PageTexts(pdfData []byte) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.texts[string(pdfData)], nil
}

func TestCompare_ProducesPDFReport(t *testing.T) {
	extractor := &mockTextExtractor{texts: map[string][]string{
		"a": {"same text", "old text", "trailing"},
		"b": {"same text", "new text"},
	}}
	svc := NewCompareService(extractor, NewMockServiceLogger())

	report, err := svc.Compare([]byte("a"), []byte("b"))
	if err != nil {
		t.Fatalf("expected compare to succeed, got %v", err)
	}
	if !bytes.HasPrefix(report, []byte("%PDF")) {
		t.Fatalf("expected a PDF report, got prefix %q", report[:8])
	}
}

func TestCompare_FirstDocumentUnreadable(t *testing.T) {
	extractor := &mockTextExtractor{err: errors.New("bad xref")}
	svc := NewCompareService(extractor, NewMockServiceLogger())
	if _, err := svc.Compare([]byte("a"), []byte("b")); !apperrors.IsKind(err, apperrors.KindMalformedDocument) {
		t.Fatalf("expected malformed_document, got %v", err)
	}
}

func TestTruncateText(t *testing.T) {
	if got := truncateText("short", 300); got != "short" {
		t.Fatalf("expected text unchanged, got %q", got)
	}
	long := string(bytes.Repeat([]byte("x"), 400))
	got := truncateText(long, 300)
	if len(got) != 303 || got[300:] != "..." {
		t.Fatalf("expected a 300 char excerpt with ellipsis, got %d chars", len(got))
	}
}

package pdf

import (
	"bytes"
	"testing"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

func makeFixtureDoc(pages int) *domain.Document {
	doc := &domain.Document{
		Validity: domain.ValidityWellFormed,
		Metadata: map[string]string{"Title": "fixture", "Producer": "pdf-workbench"},
	}
	for i := 1; i <= pages; i++ {
		doc.Pages = append(doc.Pages, domain.Page{
			Index:    i,
			Rotation: 0,
			MediaBox: domain.MediaBox{Left: 0, Bottom: 0, Right: 612, Top: 792},
			Content:  []byte("BT /F1 24 Tf 72 720 Td (page " + string(rune('0'+i)) + ") Tj ET"),
			Resources: DictionaryObject{
				"/Font": DictionaryObject{
					"/F1": DictionaryObject{
						"/Type":     NameObject("/Font"),
						"/Subtype":  NameObject("/Type1"),
						"/BaseFont": NameObject("/Helvetica"),
					},
				},
			},
		})
	}
	return doc
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := NewCodec()
	orig := makeFixtureDoc(3)
	orig.Pages[1].Rotation = 90

	data, err := codec.Serialize(orig)
	if err != nil {
		t.Fatalf("expected serialize to succeed, got %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatal("expected output to start with the PDF header")
	}

	loaded, err := codec.Load(data)
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if loaded.PageCount() != 3 {
		t.Fatalf("expected 3 pages, got %d", loaded.PageCount())
	}
	if loaded.Validity != domain.ValidityWellFormed {
		t.Fatalf("expected well-formed, got %s", loaded.Validity)
	}
	for i := range orig.Pages {
		if !bytes.Equal(loaded.Pages[i].Content, orig.Pages[i].Content) {
			t.Fatalf("page %d content changed across the round trip", i+1)
		}
		if loaded.Pages[i].Rotation != orig.Pages[i].Rotation {
			t.Fatalf("page %d rotation changed: expected %d, got %d",
				i+1, orig.Pages[i].Rotation, loaded.Pages[i].Rotation)
		}
		if loaded.Pages[i].MediaBox != orig.Pages[i].MediaBox {
			t.Fatalf("page %d media box changed", i+1)
		}
	}
	if loaded.Metadata["Title"] != "fixture" {
		t.Fatalf("expected title metadata to survive, got %q", loaded.Metadata["Title"])
	}
}

func TestCodec_Serialize_Deterministic(t *testing.T) {
	codec := NewCodec()
	doc := makeFixtureDoc(2)

	first, err := codec.Serialize(doc)
	if err != nil {
		t.Fatalf("expected serialize to succeed, got %v", err)
	}
	second, err := codec.Serialize(doc)
	if err != nil {
		t.Fatalf("expected serialize to succeed, got %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("expected two serializations of the same document to be byte-identical")
	}

	// parse then immediately rewrite stays byte-stable
	loaded, err := codec.Load(first)
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	third, err := codec.Serialize(loaded)
	if err != nil {
		t.Fatalf("expected serialize to succeed, got %v", err)
	}
	if !bytes.Equal(first, third) {
		t.Fatal("expected rewrite of an untouched document to be byte-stable")
	}
}

func TestCodec_Serialize_RejectsEmptyDocument(t *testing.T) {
	codec := NewCodec()
	_, err := codec.Serialize(&domain.Document{})
	if !apperrors.IsKind(err, apperrors.KindInvalidRequest) {
		t.Fatalf("expected invalid_request, got %v", err)
	}
}

func TestCodec_Load_RejectsGarbage(t *testing.T) {
	codec := NewCodec()
	_, err := codec.Load([]byte("this is not a pdf at all"))
	if err == nil {
		t.Fatal("expected load of garbage to fail")
	}
	if !apperrors.IsKind(err, apperrors.KindMalformedDocument) {
		t.Fatalf("expected malformed_document, got %v", err)
	}
}

func TestCodec_Load_DamagedXrefIsRepairable(t *testing.T) {
	codec := NewCodec()
	data, err := codec.Serialize(makeFixtureDoc(2))
	if err != nil {
		t.Fatalf("expected serialize to succeed, got %v", err)
	}

	damaged := bytes.Replace(data, []byte("startxref"), []byte("sturtxref"), 1)
	loaded, err := codec.Load(damaged)
	if err != nil {
		t.Fatalf("expected damaged file to load by scanning, got %v", err)
	}
	if loaded.Validity != domain.ValidityRepairable {
		t.Fatalf("expected repairable validity, got %s", loaded.Validity)
	}
	if loaded.PageCount() != 2 {
		t.Fatalf("expected 2 recovered pages, got %d", loaded.PageCount())
	}
}

func TestCodec_EncryptionRoundTrip(t *testing.T) {
	codec := NewCodec()
	orig := makeFixtureDoc(2)
	orig.Encryption = NewEncryptionState("user-pw", "owner-pw", -4, DocumentID(orig))

	data, err := codec.Serialize(orig)
	if err != nil {
		t.Fatalf("expected serialize to succeed, got %v", err)
	}

	if _, err := codec.Load(data); !apperrors.IsKind(err, apperrors.KindEncryptedDocument) {
		t.Fatalf("expected encrypted_document without a password, got %v", err)
	}
	if _, err := codec.LoadWithPassword(data, "wrong"); !apperrors.IsKind(err, apperrors.KindWrongPassword) {
		t.Fatalf("expected wrong_password, got %v", err)
	}

	loaded, err := codec.LoadWithPassword(data, "user-pw")
	if err != nil {
		t.Fatalf("expected load with the user password to succeed, got %v", err)
	}
	if !loaded.Encrypted() {
		t.Fatal("expected the loaded document to report its encryption state")
	}
	for i := range orig.Pages {
		if !bytes.Equal(loaded.Pages[i].Content, orig.Pages[i].Content) {
			t.Fatalf("page %d content corrupted by the encryption round trip", i+1)
		}
	}

	owner, err := codec.LoadWithPassword(data, "owner-pw")
	if err != nil {
		t.Fatalf("expected load with the owner password to succeed, got %v", err)
	}
	if owner.PageCount() != 2 {
		t.Fatalf("expected 2 pages, got %d", owner.PageCount())
	}
}

func TestCodec_Load_UnsupportedEncryptionRevision(t *testing.T) {
	codec := NewCodec()
	orig := makeFixtureDoc(2)
	orig.Encryption = NewEncryptionState("user-pw", "owner-pw", -4, DocumentID(orig))

	data, err := codec.Serialize(orig)
	if err != nil {
		t.Fatalf("expected serialize to succeed, got %v", err)
	}

	// Same-length substitutions keep every xref offset valid, so the only
	// thing that changes is the declared handler revision or version.
	cases := map[string][2]string{
		"revision 2": {"/R 3", "/R 2"},
		"revision 4": {"/R 3", "/R 4"},
		"version 4":  {"/V 2", "/V 4"},
	}
	for name, repl := range cases {
		tampered := bytes.Replace(data, []byte(repl[0]), []byte(repl[1]), 1)
		if bytes.Equal(tampered, data) {
			t.Fatalf("%s: marker %q not found in output", name, repl[0])
		}
		_, err := codec.LoadWithPassword(tampered, "user-pw")
		if !apperrors.IsKind(err, apperrors.KindEncryptedDocument) {
			t.Fatalf("%s: expected encrypted_document for the correct password, got %v", name, err)
		}
	}
}

func TestNormalizeRotation(t *testing.T) {
	cases := map[int]int{0: 0, 90: 90, 360: 0, 450: 90, -90: 270, 181: 180, 269: 180}
	for in, want := range cases {
		if got := normalizeRotation(in); got != want {
			t.Fatalf("normalizeRotation(%d): expected %d, got %d", in, want, got)
		}
	}
}

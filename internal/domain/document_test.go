package domain

import "testing"

func makeTestDocument(pages int) *Document {
	doc := &Document{Validity: ValidityWellFormed, Metadata: map[string]string{"Title": "test"}}
	for i := 1; i <= pages; i++ {
		doc.Pages = append(doc.Pages, Page{
			Index:    i,
			MediaBox: MediaBox{Left: 0, Bottom: 0, Right: 612, Top: 792},
			Content:  []byte{'p', byte('0' + i)},
		})
	}
	return doc
}

func TestDocument_Renumber(t *testing.T) {
	doc := makeTestDocument(3)
	doc.Pages = doc.Pages[1:]
	doc.Renumber()
	for i, p := range doc.Pages {
		if p.Index != i+1 {
			t.Fatalf("expected index %d, got %d", i+1, p.Index)
		}
	}
}

func TestDocument_Clone_IsIndependent(t *testing.T) {
	doc := makeTestDocument(2)
	doc.Encryption = &EncryptionState{UserHash: []byte{1, 2}, Revision: 3}

	clone := doc.Clone()
	clone.Pages[0].Content[0] = 'x'
	clone.Metadata["Title"] = "changed"
	clone.Encryption.UserHash[0] = 9

	if doc.Pages[0].Content[0] != 'p' {
		t.Fatal("expected original page content to be untouched")
	}
	if doc.Metadata["Title"] != "test" {
		t.Fatal("expected original metadata to be untouched")
	}
	if doc.Encryption.UserHash[0] != 1 {
		t.Fatal("expected original encryption state to be untouched")
	}
}

func TestMediaBox_Dimensions(t *testing.T) {
	box := MediaBox{Left: 10, Bottom: 20, Right: 110, Top: 220}
	if box.Width() != 100 {
		t.Fatalf("expected width 100, got %f", box.Width())
	}
	if box.Height() != 200 {
		t.Fatalf("expected height 200, got %f", box.Height())
	}
}

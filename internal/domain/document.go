package domain

// Validity describes how much of a document's structure survived parsing.
type Validity string

const (
	ValidityWellFormed Validity = "well-formed"
	ValidityRepairable Validity = "repairable"
	ValidityCorrupt    Validity = "corrupt"
)

// MediaBox is a page boundary in PDF user-space units (points).
type MediaBox struct {
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
}

// Width returns the horizontal extent of the box
func (b MediaBox) Width() float64 { return b.Right - b.Left }

// Height returns the vertical extent of the box
func (b MediaBox) Height() float64 { return b.Top - b.Bottom }

// EncryptionState records the standard security handler values of an
// encrypted document. Key is the derived file key and ID the file
// identifier the key was derived against, populated once the document has
// been opened with a valid password; neither is serialized as-is.
type EncryptionState struct {
	OwnerHash   []byte
	UserHash    []byte
	Permissions int32
	Revision    int
	Key         []byte
	ID          []byte
}

// Page is one page within a Document. Content is the decoded content
// stream, treated as an opaque unit; Resources is the page's resource
// dictionary as an object graph owned by the codec. The graph is read-only
// after load — engines that change resources build a new graph.
type Page struct {
	Index     int
	Rotation  int
	MediaBox  MediaBox
	Content   []byte
	// ContentFilter is empty when Content holds decoded bytes; otherwise it
	// names the stream filter the codec could not decode, and Content holds
	// the payload exactly as stored.
	ContentFilter string
	Resources     interface{}
	Deleted       bool
}

// Document is the in-memory representation of one PDF: an ordered page
// sequence plus document-level metadata. Every operation output owns a
// fresh Document; inputs are never aliased into outputs.
type Document struct {
	Pages      []Page
	Metadata   map[string]string
	Encryption *EncryptionState
	Validity   Validity
}

// PageCount returns the number of pages in the document
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Encrypted reports whether the document carries an encryption dictionary
func (d *Document) Encrypted() bool {
	return d.Encryption != nil
}

// Renumber restores the invariant that page indices are contiguous,
// 1-based and unique, in current slice order.
func (d *Document) Renumber() {
	for i := range d.Pages {
		d.Pages[i].Index = i + 1
	}
}

// Clone returns a deep copy of the document. Content streams and metadata
// are copied; resource graphs are shared because they are immutable after
// load.
func (d *Document) Clone() *Document {
	out := &Document{
		Pages:    make([]Page, len(d.Pages)),
		Validity: d.Validity,
	}
	for i, p := range d.Pages {
		cp := p
		cp.Content = append([]byte(nil), p.Content...)
		out.Pages[i] = cp
	}
	if d.Metadata != nil {
		out.Metadata = make(map[string]string, len(d.Metadata))
		for k, v := range d.Metadata {
			out.Metadata[k] = v
		}
	}
	if d.Encryption != nil {
		enc := &EncryptionState{
			OwnerHash:   append([]byte(nil), d.Encryption.OwnerHash...),
			UserHash:    append([]byte(nil), d.Encryption.UserHash...),
			Permissions: d.Encryption.Permissions,
			Revision:    d.Encryption.Revision,
			Key:         append([]byte(nil), d.Encryption.Key...),
			ID:          append([]byte(nil), d.Encryption.ID...),
		}
		out.Encryption = enc
	}
	return out
}

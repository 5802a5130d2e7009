package pdf

import (
	"bytes"
	"compress/zlib"
	"crypto/md5"
	"fmt"
	"sort"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

// Serialize writes a document back to PDF bytes. Output is deterministic
// for identical input: stable object numbering, sorted dictionary keys,
// no generated timestamps, classic cross-reference table.
func Serialize(doc *domain.Document) ([]byte, error) {
	if doc == nil || len(doc.Pages) == 0 {
		return nil, apperrors.NewInvalidRequest("cannot serialize a document with no pages")
	}

	w := &writer{
		offsets: map[int]int{},
		dedup:   map[string]int{},
		enc:     doc.Encryption,
	}
	w.buf.WriteString("%PDF-1.7\n")
	w.buf.Write([]byte{'%', 0xE2, 0xE3, 0xCF, 0xD3, '\n'})

	const catalogNum, pagesNum = 1, 2
	w.next = pagesNum

	type pagePlan struct {
		pageNum    int
		contentNum int
		page       *domain.Page
		resources  Object
	}
	plans := make([]pagePlan, len(doc.Pages))
	var streams []plannedStream

	for i := range doc.Pages {
		p := &doc.Pages[i]
		plan := pagePlan{page: p}
		plan.pageNum = w.alloc()
		plan.contentNum = w.alloc()
		if res, ok := p.Resources.(DictionaryObject); ok {
			plan.resources = w.planStreams(res, &streams)
		}
		plans[i] = plan
	}

	var infoNum int
	if len(doc.Metadata) > 0 {
		infoNum = w.alloc()
	}
	var encryptNum int
	if w.enc != nil {
		if len(w.enc.Key) == 0 {
			return nil, apperrors.NewInternal("encryption state has no file key", nil)
		}
		encryptNum = w.alloc()
	}

	// catalog
	w.writeObject(catalogNum, DictionaryObject{
		"/Type":  NameObject("/Catalog"),
		"/Pages": IndirectObject{ObjectNumber: pagesNum},
	}, false)

	// page tree root
	kids := make(ArrayObject, len(plans))
	for i, plan := range plans {
		kids[i] = IndirectObject{ObjectNumber: plan.pageNum}
	}
	w.writeObject(pagesNum, DictionaryObject{
		"/Type":  NameObject("/Pages"),
		"/Kids":  kids,
		"/Count": NumberObject(len(plans)),
	}, false)

	for _, plan := range plans {
		p := plan.page
		dict := DictionaryObject{
			"/Type":   NameObject("/Page"),
			"/Parent": IndirectObject{ObjectNumber: pagesNum},
			"/MediaBox": ArrayObject{
				NumberObject(p.MediaBox.Left), NumberObject(p.MediaBox.Bottom),
				NumberObject(p.MediaBox.Right), NumberObject(p.MediaBox.Top),
			},
			"/Contents": IndirectObject{ObjectNumber: plan.contentNum},
		}
		if p.Rotation != 0 {
			dict["/Rotate"] = NumberObject(p.Rotation)
		}
		if plan.resources != nil {
			dict["/Resources"] = plan.resources
		} else {
			dict["/Resources"] = DictionaryObject{}
		}
		w.writeObject(plan.pageNum, dict, true)
		w.writeContentStream(plan.contentNum, p)
	}

	for _, s := range streams {
		w.writeObject(s.num, s.stream, true)
	}

	if infoNum != 0 {
		info := DictionaryObject{}
		for k, v := range doc.Metadata {
			info["/"+k] = StringObject(v)
		}
		w.writeObject(infoNum, info, true)
	}

	// keys are derived against the file identifier, so an encrypted
	// document keeps the identifier its keys were computed with
	id := DocumentID(doc)
	if w.enc != nil && len(w.enc.ID) > 0 {
		id = w.enc.ID
	}
	if encryptNum != 0 {
		w.writeObject(encryptNum, DictionaryObject{
			"/Filter": NameObject("/Standard"),
			"/V":      NumberObject(2),
			"/R":      NumberObject(3),
			"/Length": NumberObject(128),
			"/O":      StringObject(w.enc.OwnerHash),
			"/U":      StringObject(w.enc.UserHash),
			"/P":      NumberObject(w.enc.Permissions),
		}, false)
	}

	// cross-reference table
	xrefStart := w.buf.Len()
	fmt.Fprintf(&w.buf, "xref\n0 %d\n", w.next+1)
	w.buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= w.next; num++ {
		fmt.Fprintf(&w.buf, "%010d 00000 n \n", w.offsets[num])
	}

	trailer := DictionaryObject{
		"/Size": NumberObject(w.next + 1),
		"/Root": IndirectObject{ObjectNumber: catalogNum},
		"/ID":   ArrayObject{HexStringObject(id), HexStringObject(id)},
	}
	if infoNum != 0 {
		trailer["/Info"] = IndirectObject{ObjectNumber: infoNum}
	}
	if encryptNum != 0 {
		trailer["/Encrypt"] = IndirectObject{ObjectNumber: encryptNum}
	}
	w.buf.WriteString("trailer\n")
	writeValue(&w.buf, trailer)
	fmt.Fprintf(&w.buf, "\nstartxref\n%d\n%%%%EOF\n", xrefStart)

	return w.buf.Bytes(), nil
}

// DocumentID derives the 16-byte file identifier from document content.
// It is content-addressed rather than time-based so serialization stays
// deterministic; protect uses the same value for key derivation.
func DocumentID(doc *domain.Document) []byte {
	h := md5.New()
	for i := range doc.Pages {
		p := &doc.Pages[i]
		h.Write(p.Content)
		fmt.Fprintf(h, "|%d|%g %g %g %g|", p.Rotation,
			p.MediaBox.Left, p.MediaBox.Bottom, p.MediaBox.Right, p.MediaBox.Top)
	}
	keys := make([]string, 0, len(doc.Metadata))
	for k := range doc.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s;", k, doc.Metadata[k])
	}
	return h.Sum(nil)
}

type plannedStream struct {
	num    int
	stream *StreamObject
}

type writer struct {
	buf     bytes.Buffer
	offsets map[int]int
	next    int
	dedup   map[string]int
	enc     *domain.EncryptionState
}

func (w *writer) alloc() int {
	w.next++
	return w.next
}

// planStreams rewrites a resource graph so every stream node becomes an
// indirect reference, deduplicating identical streams by content.
func (w *writer) planStreams(obj Object, streams *[]plannedStream) Object {
	switch v := obj.(type) {
	case *StreamObject:
		key := streamKey(v)
		if num, ok := w.dedup[key]; ok {
			return IndirectObject{ObjectNumber: num}
		}
		num := w.alloc()
		w.dedup[key] = num
		cleaned := &StreamObject{
			Dictionary: w.planStreams(v.Dictionary, streams).(DictionaryObject),
			Data:       v.Data,
		}
		*streams = append(*streams, plannedStream{num: num, stream: cleaned})
		return IndirectObject{ObjectNumber: num}
	case DictionaryObject:
		// sorted key order keeps stream numbering stable across runs
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(DictionaryObject, len(v))
		for _, k := range keys {
			out[k] = w.planStreams(v[k], streams)
		}
		return out
	case ArrayObject:
		out := make(ArrayObject, len(v))
		for i, item := range v {
			out[i] = w.planStreams(item, streams)
		}
		return out
	case IndirectObject:
		// dangling reference from a partially resolved graph
		return NullObject{}
	default:
		return obj
	}
}

func streamKey(s *StreamObject) string {
	dict := make(DictionaryObject, len(s.Dictionary))
	for k, v := range s.Dictionary {
		if k == "/Length" {
			continue
		}
		dict[k] = v
	}
	var sb bytes.Buffer
	writeValue(&sb, dict)
	sum := md5.Sum(append(sb.Bytes(), s.Data...))
	return string(sum[:])
}

func (w *writer) writeObject(num int, obj Object, encrypt bool) {
	if w.enc != nil && encrypt {
		obj = cryptObject(w.enc.Key, obj, num, 0)
	}
	w.offsets[num] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n", num)
	switch v := obj.(type) {
	case *StreamObject:
		dict := make(DictionaryObject, len(v.Dictionary)+1)
		for k, item := range v.Dictionary {
			dict[k] = item
		}
		dict["/Length"] = NumberObject(len(v.Data))
		writeValue(&w.buf, dict)
		w.buf.WriteString("\nstream\n")
		w.buf.Write(v.Data)
		w.buf.WriteString("\nendstream")
	default:
		writeValue(&w.buf, obj)
	}
	w.buf.WriteString("\nendobj\n")
}

// writeContentStream flate-compresses decoded page content; payloads with
// an undecoded filter are passed through unchanged.
func (w *writer) writeContentStream(num int, p *domain.Page) {
	var stream *StreamObject
	if p.ContentFilter != "" {
		stream = &StreamObject{
			Dictionary: DictionaryObject{"/Filter": NameObject(p.ContentFilter)},
			Data:       p.Content,
		}
	} else {
		var compressed bytes.Buffer
		zw := zlib.NewWriter(&compressed)
		zw.Write(p.Content)
		zw.Close()
		stream = &StreamObject{
			Dictionary: DictionaryObject{"/Filter": NameObject("/FlateDecode")},
			Data:       compressed.Bytes(),
		}
	}
	w.writeObject(num, stream, true)
}

// writeValue serializes one object value with sorted dictionary keys.
func writeValue(buf *bytes.Buffer, obj Object) {
	switch v := obj.(type) {
	case DictionaryObject:
		buf.WriteString("<<")
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			buf.WriteString(" ")
			buf.WriteString(k)
			buf.WriteString(" ")
			writeValue(buf, v[k])
		}
		buf.WriteString(" >>")
	case ArrayObject:
		buf.WriteString("[")
		for i, item := range v {
			if i > 0 {
				buf.WriteString(" ")
			}
			writeValue(buf, item)
		}
		buf.WriteString("]")
	case StringObject:
		buf.WriteByte('(')
		for i := 0; i < len(v); i++ {
			c := v[i]
			switch c {
			case '(', ')', '\\':
				buf.WriteByte('\\')
				buf.WriteByte(c)
			case '\r':
				buf.WriteString("\\r")
			case '\n':
				buf.WriteString("\\n")
			default:
				buf.WriteByte(c)
			}
		}
		buf.WriteByte(')')
	case HexStringObject:
		fmt.Fprintf(buf, "<%X>", []byte(v))
	case nil:
		buf.WriteString("null")
	default:
		buf.WriteString(obj.String())
	}
}

package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

// xrefEntry locates one indirect object, either at a byte offset or
// inside an object stream.
type xrefEntry struct {
	offset    int
	inStream  bool
	streamNum int
	streamIdx int
}

// Reader resolves the object graph of one PDF file.
type Reader struct {
	data     []byte
	entries  map[int]xrefEntry
	cache    map[int]Object
	trailer  DictionaryObject
	fileKey  []byte
	encState *domain.EncryptionState
	validity domain.Validity
}

// Codec implements domain.Codec over this package's reader and writer.
type Codec struct{}

// NewCodec returns the package codec.
func NewCodec() *Codec { return &Codec{} }

// Load parses raw PDF bytes into the document model with no password.
func (c *Codec) Load(data []byte) (*domain.Document, error) {
	return c.LoadWithPassword(data, "")
}

// LoadWithPassword parses raw PDF bytes, unlocking content with the given
// password when the file is encrypted.
func (c *Codec) LoadWithPassword(data []byte, password string) (*domain.Document, error) {
	r, err := NewReader(data, password)
	if err != nil {
		return nil, err
	}
	return r.BuildDocument()
}

// Serialize writes the document model back to bytes.
func (c *Codec) Serialize(doc *domain.Document) ([]byte, error) {
	return Serialize(doc)
}

// NewReader parses the file skeleton (header, xref chain, trailer) and
// authenticates against the encryption dictionary if one is present.
// A file whose cross-reference data is damaged but whose objects are
// recoverable by scanning is loaded with Repairable validity.
func NewReader(data []byte, password string) (*Reader, error) {
	r := &Reader{
		data:     data,
		entries:  make(map[int]xrefEntry),
		cache:    make(map[int]Object),
		validity: domain.ValidityWellFormed,
	}

	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		// Some generators emit leading junk; tolerate it if the marker is
		// near the start, otherwise treat the input as scan-only.
		if idx := bytes.Index(data, []byte("%PDF-")); idx < 0 || idx > 1024 {
			r.validity = domain.ValidityCorrupt
		}
	}

	if err := r.parseXref(); err != nil {
		if scanErr := r.scanObjects(); scanErr != nil {
			return nil, apperrors.NewMalformedDocument("no recoverable object structure", err)
		}
		if r.validity == domain.ValidityWellFormed {
			r.validity = domain.ValidityRepairable
		}
	}

	if err := r.setupEncryption(password); err != nil {
		return nil, err
	}
	return r, nil
}

// Validity reports how the file structure parsed.
func (r *Reader) Validity() domain.Validity { return r.validity }

// Trailer returns the merged trailer dictionary.
func (r *Reader) Trailer() DictionaryObject { return r.trailer }

func (r *Reader) parseXref() error {
	tail := r.data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return fmt.Errorf("startxref not found")
	}
	lex := NewLexer(tail[idx+len("startxref"):])
	obj, err := lex.ReadObject()
	if err != nil {
		return fmt.Errorf("reading startxref offset: %w", err)
	}
	start, ok := obj.(NumberObject)
	if !ok {
		return fmt.Errorf("startxref offset is not a number")
	}

	pos := int(start)
	seen := map[int]bool{}
	for pos >= 0 && pos < len(r.data) && !seen[pos] {
		seen[pos] = true
		prev, err := r.parseXrefSection(pos)
		if err != nil {
			return err
		}
		pos = prev
	}
	if r.trailer == nil {
		return fmt.Errorf("no trailer found")
	}
	return nil
}

// parseXrefSection handles one cross-reference section, classic table or
// xref stream, and returns the /Prev offset (-1 when the chain ends).
func (r *Reader) parseXrefSection(pos int) (int, error) {
	lex := NewLexer(r.data)
	lex.Seek(pos)
	lex.SkipWhitespace()

	if bytes.HasPrefix(r.data[lex.Pos():], []byte("xref")) {
		return r.parseXrefTable(lex.Pos() + 4)
	}
	return r.parseXrefStream(pos)
}

func (r *Reader) parseXrefTable(pos int) (int, error) {
	lex := NewLexer(r.data)
	lex.Seek(pos)
	for {
		lex.SkipWhitespace()
		if bytes.HasPrefix(r.data[lex.Pos():], []byte("trailer")) {
			lex.Seek(lex.Pos() + len("trailer"))
			obj, err := lex.ReadObject()
			if err != nil {
				return -1, fmt.Errorf("reading trailer: %w", err)
			}
			trailer, ok := obj.(DictionaryObject)
			if !ok {
				return -1, fmt.Errorf("trailer is not a dictionary")
			}
			r.mergeTrailer(trailer)
			if prev, ok := dictInt(trailer, "/Prev", nil); ok {
				return prev, nil
			}
			return -1, nil
		}

		startObj, err := lex.ReadObject()
		if err != nil {
			return -1, fmt.Errorf("reading xref subsection: %w", err)
		}
		countObj, err := lex.ReadObject()
		if err != nil {
			return -1, fmt.Errorf("reading xref subsection count: %w", err)
		}
		startNum, ok1 := startObj.(NumberObject)
		count, ok2 := countObj.(NumberObject)
		if !ok1 || !ok2 {
			return -1, fmt.Errorf("malformed xref subsection header")
		}

		for i := 0; i < int(count); i++ {
			offObj, err := lex.ReadObject()
			if err != nil {
				return -1, err
			}
			genObj, err := lex.ReadObject()
			if err != nil {
				return -1, err
			}
			kindObj, err := lex.ReadObject()
			if err != nil {
				return -1, err
			}
			_ = genObj
			off, ok := offObj.(NumberObject)
			if !ok {
				return -1, fmt.Errorf("malformed xref entry")
			}
			num := int(startNum) + i
			if kw, ok := kindObj.(KeywordObject); ok && kw == "n" {
				if _, exists := r.entries[num]; !exists {
					r.entries[num] = xrefEntry{offset: int(off)}
				}
			}
		}
	}
}

func (r *Reader) parseXrefStream(pos int) (int, error) {
	_, _, obj, err := r.parseIndirectAt(pos)
	if err != nil {
		return -1, fmt.Errorf("reading xref stream: %w", err)
	}
	stream, ok := obj.(*StreamObject)
	if !ok {
		return -1, fmt.Errorf("xref section is neither table nor stream")
	}
	dict := stream.Dictionary
	if t, _ := dictName(dict, "/Type"); t != "/XRef" {
		return -1, fmt.Errorf("stream at xref offset is not /Type /XRef")
	}

	data, err := r.decodeStream(stream)
	if err != nil {
		return -1, fmt.Errorf("decoding xref stream: %w", err)
	}

	wArr, ok := dict["/W"].(ArrayObject)
	if !ok || len(wArr) < 3 {
		return -1, fmt.Errorf("xref stream missing /W")
	}
	widths := make([]int, 3)
	for i := 0; i < 3; i++ {
		n, ok := wArr[i].(NumberObject)
		if !ok {
			return -1, fmt.Errorf("bad /W entry")
		}
		widths[i] = int(n)
	}
	rowLen := widths[0] + widths[1] + widths[2]
	if rowLen == 0 {
		return -1, fmt.Errorf("zero-width xref rows")
	}

	size, _ := dictInt(dict, "/Size", nil)
	index := []int{0, size}
	if idxArr, ok := dict["/Index"].(ArrayObject); ok {
		index = index[:0]
		for _, v := range idxArr {
			if n, ok := v.(NumberObject); ok {
				index = append(index, int(n))
			}
		}
	}

	readField := func(row []byte, start, width int) int {
		v := 0
		for i := 0; i < width; i++ {
			v = v<<8 | int(row[start+i])
		}
		return v
	}

	rowPos := 0
	for i := 0; i+1 < len(index); i += 2 {
		first, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			if rowPos+rowLen > len(data) {
				return -1, fmt.Errorf("xref stream truncated")
			}
			row := data[rowPos : rowPos+rowLen]
			rowPos += rowLen

			kind := 1
			if widths[0] > 0 {
				kind = readField(row, 0, widths[0])
			}
			f2 := readField(row, widths[0], widths[1])
			f3 := readField(row, widths[0]+widths[1], widths[2])
			num := first + j
			if _, exists := r.entries[num]; exists {
				continue
			}
			switch kind {
			case 1:
				r.entries[num] = xrefEntry{offset: f2}
			case 2:
				r.entries[num] = xrefEntry{inStream: true, streamNum: f2, streamIdx: f3}
			}
		}
	}

	r.mergeTrailer(dict)
	if prev, ok := dictInt(dict, "/Prev", nil); ok {
		return prev, nil
	}
	return -1, nil
}

func (r *Reader) mergeTrailer(t DictionaryObject) {
	if r.trailer == nil {
		r.trailer = DictionaryObject{}
	}
	for k, v := range t {
		if _, exists := r.trailer[k]; !exists {
			r.trailer[k] = v
		}
	}
}

// scanObjects rebuilds the object table by scanning the whole byte stream
// for "N G obj" markers. Later instances win, matching incremental-update
// semantics.
func (r *Reader) scanObjects() error {
	offsets := ScanObjectOffsets(r.data)
	if len(offsets) == 0 {
		return fmt.Errorf("no indirect objects found")
	}
	for num, off := range offsets {
		r.entries[num] = xrefEntry{offset: off}
	}
	if r.trailer == nil {
		r.trailer = DictionaryObject{}
	}
	if _, ok := r.trailer["/Root"]; !ok {
		// locate the catalog by inspection
		for num := range r.entries {
			obj, err := r.loadObject(num)
			if err != nil {
				continue
			}
			if dict, ok := obj.(DictionaryObject); ok {
				if t, _ := dictName(dict, "/Type"); t == "/Catalog" {
					r.trailer["/Root"] = IndirectObject{ObjectNumber: num}
					break
				}
			}
		}
	}
	if _, ok := r.trailer["/Root"]; !ok {
		return fmt.Errorf("no catalog found")
	}
	return nil
}

// ScanObjectOffsets finds every "N G obj" marker in raw bytes and returns
// object number -> byte offset. Shared with the repair path.
func ScanObjectOffsets(data []byte) map[int]int {
	offsets := make(map[int]int)
	search := data
	base := 0
	for {
		idx := bytes.Index(search, []byte(" obj"))
		if idx < 0 {
			break
		}
		abs := base + idx
		// walk back over "N G" digits and whitespace
		end := abs
		i := end
		for i > 0 && isWhitespace(data[i-1]) {
			i--
		}
		genEnd := i
		for i > 0 && data[i-1] >= '0' && data[i-1] <= '9' {
			i--
		}
		genStart := i
		for i > 0 && isWhitespace(data[i-1]) {
			i--
		}
		numEnd := i
		for i > 0 && data[i-1] >= '0' && data[i-1] <= '9' {
			i--
		}
		numStart := i
		if numStart < numEnd && genStart < genEnd {
			num := 0
			for _, c := range data[numStart:numEnd] {
				num = num*10 + int(c-'0')
			}
			offsets[num] = numStart
		}
		base = abs + 4
		search = data[base:]
	}
	return offsets
}

func (r *Reader) setupEncryption(password string) error {
	if r.trailer == nil {
		return nil
	}
	encRef, ok := r.trailer["/Encrypt"]
	if !ok {
		return nil
	}
	encObj := r.Resolve(encRef)
	encDict, ok := encObj.(DictionaryObject)
	if !ok {
		return apperrors.NewMalformedDocument("encryption dictionary unreadable", nil)
	}

	filter, _ := dictName(encDict, "/Filter")
	if filter != "/Standard" {
		return apperrors.NewEncryptedDocument("unsupported security handler " + filter)
	}

	state := &domain.EncryptionState{Revision: 3}
	if rev, ok := dictInt(encDict, "/R", r.Resolve); ok {
		state.Revision = rev
	}
	// Only the R3/V2 RC4 handler is implemented. R2 computes its hashes
	// differently and R4 may carry AES crypt filters, so anything else is
	// surfaced as unsupported rather than misdecrypted.
	if state.Revision != 3 {
		return apperrors.NewEncryptedDocument(fmt.Sprintf("unsupported encryption revision %d", state.Revision))
	}
	if v, ok := dictInt(encDict, "/V", r.Resolve); ok && v != 2 {
		return apperrors.NewEncryptedDocument(fmt.Sprintf("unsupported encryption version %d", v))
	}
	if o, ok := encDict["/O"]; ok {
		state.OwnerHash = stringBytes(r.Resolve(o))
	}
	if u, ok := encDict["/U"]; ok {
		state.UserHash = stringBytes(r.Resolve(u))
	}
	if p, ok := dictInt(encDict, "/P", r.Resolve); ok {
		state.Permissions = int32(p)
	}

	id := r.firstID()
	state.ID = append([]byte(nil), id...)

	if key, ok := VerifyUserPassword(state, password, id); ok {
		state.Key = key
	} else if key, ok := VerifyOwnerPassword(state, password, id); ok {
		state.Key = key
	} else if password == "" {
		return apperrors.NewEncryptedDocument("document is encrypted and requires a password")
	} else {
		return apperrors.NewWrongPassword("password does not match")
	}

	r.fileKey = state.Key
	r.encState = state
	return nil
}

func (r *Reader) firstID() []byte {
	if idArr, ok := r.trailer["/ID"].(ArrayObject); ok && len(idArr) > 0 {
		return stringBytes(idArr[0])
	}
	return nil
}

func stringBytes(obj Object) []byte {
	switch v := obj.(type) {
	case StringObject:
		return []byte(v)
	case HexStringObject:
		return []byte(v)
	}
	return nil
}

// GetObject loads and caches the indirect object with the given number.
func (r *Reader) GetObject(num int) (Object, error) {
	if obj, ok := r.cache[num]; ok {
		return obj, nil
	}
	obj, err := r.loadObject(num)
	if err != nil {
		return nil, err
	}
	r.cache[num] = obj
	return obj, nil
}

func (r *Reader) loadObject(num int) (Object, error) {
	entry, ok := r.entries[num]
	if !ok {
		return NullObject{}, nil
	}
	if entry.inStream {
		return r.loadFromObjectStream(entry.streamNum, entry.streamIdx, num)
	}
	gotNum, gen, obj, err := r.parseIndirectAt(entry.offset)
	if err != nil {
		return nil, err
	}
	if gotNum != num {
		return nil, fmt.Errorf("object %d: offset points at object %d", num, gotNum)
	}
	if r.fileKey != nil && !isEncryptExempt(obj) {
		obj = cryptObject(r.fileKey, obj, num, gen)
	}
	return obj, nil
}

// The encryption dictionary and xref streams are stored in the clear.
func isEncryptExempt(obj Object) bool {
	if s, ok := obj.(*StreamObject); ok {
		if t, _ := dictName(s.Dictionary, "/Type"); t == "/XRef" {
			return true
		}
	}
	return false
}

// parseIndirectAt reads "N G obj ... endobj" at a byte offset, including
// stream payloads.
func (r *Reader) parseIndirectAt(pos int) (num, gen int, obj Object, err error) {
	if pos < 0 || pos >= len(r.data) {
		return 0, 0, nil, fmt.Errorf("object offset %d out of bounds", pos)
	}
	lex := NewLexer(r.data)
	lex.Seek(pos)

	numObj, err := lex.ReadObject()
	if err != nil {
		return 0, 0, nil, err
	}
	genObj, err := lex.ReadObject()
	if err != nil {
		return 0, 0, nil, err
	}
	kw, err := lex.ReadObject()
	if err != nil {
		return 0, 0, nil, err
	}
	n, ok1 := numObj.(NumberObject)
	g, ok2 := genObj.(NumberObject)
	k, ok3 := kw.(KeywordObject)
	if !ok1 || !ok2 || !ok3 || k != "obj" {
		return 0, 0, nil, fmt.Errorf("no indirect object at offset %d", pos)
	}

	body, err := lex.ReadObject()
	if err != nil {
		return 0, 0, nil, err
	}

	// stream payload follows the dictionary
	lex.SkipWhitespace()
	if dict, ok := body.(DictionaryObject); ok && bytes.HasPrefix(r.data[lex.Pos():], []byte("stream")) {
		dataStart := lex.Pos() + len("stream")
		if dataStart < len(r.data) && r.data[dataStart] == '\r' {
			dataStart++
		}
		if dataStart < len(r.data) && r.data[dataStart] == '\n' {
			dataStart++
		}
		length, ok := dictInt(dict, "/Length", r.Resolve)
		if !ok || dataStart+length > len(r.data) {
			// fall back on the endstream keyword
			rel := bytes.Index(r.data[dataStart:], []byte("endstream"))
			if rel < 0 {
				return 0, 0, nil, fmt.Errorf("object %d: unterminated stream", int(n))
			}
			length = rel
			for length > 0 && (r.data[dataStart+length-1] == '\n' || r.data[dataStart+length-1] == '\r') {
				length--
			}
		}
		return int(n), int(g), &StreamObject{
			Dictionary: dict,
			Data:       append([]byte(nil), r.data[dataStart:dataStart+length]...),
		}, nil
	}

	return int(n), int(g), body, nil
}

func (r *Reader) loadFromObjectStream(streamNum, idx, wantNum int) (Object, error) {
	container, err := r.GetObject(streamNum)
	if err != nil {
		return nil, err
	}
	stream, ok := container.(*StreamObject)
	if !ok {
		return nil, fmt.Errorf("object stream %d is not a stream", streamNum)
	}
	data, err := r.decodeStream(stream)
	if err != nil {
		return nil, err
	}
	n, _ := dictInt(stream.Dictionary, "/N", r.Resolve)
	first, _ := dictInt(stream.Dictionary, "/First", r.Resolve)

	lex := NewLexer(data)
	type pair struct{ num, off int }
	pairs := make([]pair, 0, n)
	for i := 0; i < n; i++ {
		numObj, err := lex.ReadObject()
		if err != nil {
			return nil, err
		}
		offObj, err := lex.ReadObject()
		if err != nil {
			return nil, err
		}
		nn, ok1 := numObj.(NumberObject)
		oo, ok2 := offObj.(NumberObject)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("malformed object stream header")
		}
		pairs = append(pairs, pair{int(nn), int(oo)})
	}

	target := idx
	if target >= len(pairs) || pairs[target].num != wantNum {
		target = -1
		for i, p := range pairs {
			if p.num == wantNum {
				target = i
				break
			}
		}
		if target < 0 {
			return nil, fmt.Errorf("object %d not found in object stream %d", wantNum, streamNum)
		}
	}

	inner := NewLexer(data)
	inner.Seek(first + pairs[target].off)
	return inner.ReadObject()
}

// Resolve follows an indirect reference to its value. Non-references pass
// through unchanged.
func (r *Reader) Resolve(obj Object) Object {
	for i := 0; i < 32; i++ {
		ref, ok := obj.(IndirectObject)
		if !ok {
			return obj
		}
		next, err := r.GetObject(ref.ObjectNumber)
		if err != nil {
			return NullObject{}
		}
		obj = next
	}
	return NullObject{}
}

// resolveDeep replaces every indirect reference in an object graph with
// its value, guarding against reference cycles.
func (r *Reader) resolveDeep(obj Object, active map[int]bool) Object {
	switch v := obj.(type) {
	case IndirectObject:
		if active[v.ObjectNumber] {
			return NullObject{}
		}
		active[v.ObjectNumber] = true
		resolved := r.resolveDeep(r.Resolve(v), active)
		delete(active, v.ObjectNumber)
		return resolved
	case ArrayObject:
		out := make(ArrayObject, len(v))
		for i, item := range v {
			out[i] = r.resolveDeep(item, active)
		}
		return out
	case DictionaryObject:
		out := make(DictionaryObject, len(v))
		for k, item := range v {
			out[k] = r.resolveDeep(item, active)
		}
		return out
	case *StreamObject:
		return &StreamObject{
			Dictionary: r.resolveDeep(v.Dictionary, active).(DictionaryObject),
			Data:       v.Data,
		}
	default:
		return obj
	}
}

// decodeStream returns the decoded payload of a stream object.
func (r *Reader) decodeStream(s *StreamObject) ([]byte, error) {
	return DecodeStream(s, r.Resolve)
}

// DecodeStream applies the stream's filter chain. Only /FlateDecode is
// supported; resolve maps indirect filter parameters to values.
func DecodeStream(s *StreamObject, resolve func(Object) Object) ([]byte, error) {
	filters, parms := filterChain(s.Dictionary, resolve)
	data := s.Data
	for i, f := range filters {
		switch f {
		case "/FlateDecode", "/Fl":
			zr, err := zlib.NewReader(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("flate: %w", err)
			}
			decoded, err := io.ReadAll(zr)
			zr.Close()
			if err != nil && len(decoded) == 0 {
				return nil, fmt.Errorf("flate: %w", err)
			}
			data = decoded
			if i < len(parms) {
				if p, ok := parms[i].(DictionaryObject); ok {
					out, err := applyPredictor(p, data, resolve)
					if err != nil {
						return nil, err
					}
					data = out
				}
			}
		default:
			return nil, fmt.Errorf("unsupported filter %s", f)
		}
	}
	return data, nil
}

func filterChain(dict DictionaryObject, resolve func(Object) Object) ([]string, []Object) {
	var filters []string
	var parms []Object
	fv, ok := dict["/Filter"]
	if !ok {
		return nil, nil
	}
	fv = resolve(fv)
	switch f := fv.(type) {
	case NameObject:
		filters = []string{string(f)}
	case ArrayObject:
		for _, item := range f {
			if n, ok := resolve(item).(NameObject); ok {
				filters = append(filters, string(n))
			}
		}
	}
	if pv, ok := dict["/DecodeParms"]; ok {
		pv = resolve(pv)
		switch p := pv.(type) {
		case ArrayObject:
			for _, item := range p {
				parms = append(parms, resolve(item))
			}
		default:
			parms = []Object{p}
		}
	}
	return filters, parms
}

// applyPredictor undoes PNG row predictors, used by xref streams.
func applyPredictor(parms DictionaryObject, data []byte, resolve func(Object) Object) ([]byte, error) {
	pred, ok := dictInt(parms, "/Predictor", resolve)
	if !ok || pred <= 1 {
		return data, nil
	}
	if pred < 10 {
		return nil, fmt.Errorf("unsupported predictor %d", pred)
	}
	columns, ok := dictInt(parms, "/Columns", resolve)
	if !ok {
		columns = 1
	}
	colors, ok := dictInt(parms, "/Colors", resolve)
	if !ok {
		colors = 1
	}
	bpc, ok := dictInt(parms, "/BitsPerComponent", resolve)
	if !ok {
		bpc = 8
	}
	bpp := (colors*bpc + 7) / 8
	rowLen := (columns*colors*bpc + 7) / 8

	out := make([]byte, 0, len(data))
	prev := make([]byte, rowLen)
	for pos := 0; pos+rowLen+1 <= len(data); pos += rowLen + 1 {
		ft := data[pos]
		row := append([]byte(nil), data[pos+1:pos+1+rowLen]...)
		switch ft {
		case 0:
		case 1: // Sub
			for i := bpp; i < rowLen; i++ {
				row[i] += row[i-bpp]
			}
		case 2: // Up
			for i := 0; i < rowLen; i++ {
				row[i] += prev[i]
			}
		case 3: // Average
			for i := 0; i < rowLen; i++ {
				left := 0
				if i >= bpp {
					left = int(row[i-bpp])
				}
				row[i] += byte((left + int(prev[i])) / 2)
			}
		case 4: // Paeth
			for i := 0; i < rowLen; i++ {
				left, upLeft := 0, 0
				if i >= bpp {
					left = int(row[i-bpp])
					upLeft = int(prev[i-bpp])
				}
				row[i] += paeth(left, int(prev[i]), upLeft)
			}
		default:
			return nil, fmt.Errorf("unknown PNG filter %d", ft)
		}
		out = append(out, row...)
		prev = row
	}
	return out, nil
}

func paeth(a, b, c int) byte {
	p := a + b - c
	pa, pb, pc := abs(p-a), abs(p-b), abs(p-c)
	if pa <= pb && pa <= pc {
		return byte(a)
	}
	if pb <= pc {
		return byte(b)
	}
	return byte(c)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

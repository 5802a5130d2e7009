package pdf

import (
	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

// letter-sized default when a page carries no media box at all
var defaultMediaBox = domain.MediaBox{Left: 0, Bottom: 0, Right: 612, Top: 792}

// inherited holds page-tree attributes that flow down from /Pages nodes.
type inherited struct {
	mediaBox  *domain.MediaBox
	rotate    *int
	resources Object
}

// BuildDocument walks the page tree and produces the document model.
func (r *Reader) BuildDocument() (*domain.Document, error) {
	rootRef, ok := r.trailer["/Root"]
	if !ok {
		return nil, apperrors.NewMalformedDocument("trailer has no /Root", nil)
	}
	catalog, ok := r.Resolve(rootRef).(DictionaryObject)
	if !ok {
		return nil, apperrors.NewMalformedDocument("document catalog unreadable", nil)
	}
	pagesObj, ok := catalog["/Pages"]
	if !ok {
		return nil, apperrors.NewMalformedDocument("catalog has no page tree", nil)
	}

	doc := &domain.Document{
		Validity:   r.validity,
		Encryption: r.encState,
	}

	visited := map[int]bool{}
	if err := r.walkPages(pagesObj, inherited{}, doc, visited, 0); err != nil {
		return nil, err
	}
	if len(doc.Pages) == 0 {
		return nil, apperrors.NewMalformedDocument("page tree has no pages", nil)
	}
	doc.Renumber()
	doc.Metadata = r.readInfo()
	return doc, nil
}

func (r *Reader) walkPages(node Object, inh inherited, doc *domain.Document, visited map[int]bool, depth int) error {
	if depth > 64 {
		return apperrors.NewMalformedDocument("page tree too deep", nil)
	}
	if ref, ok := node.(IndirectObject); ok {
		if visited[ref.ObjectNumber] {
			return nil
		}
		visited[ref.ObjectNumber] = true
		defer delete(visited, ref.ObjectNumber)
	}

	dict, ok := r.Resolve(node).(DictionaryObject)
	if !ok {
		return nil
	}

	if mb := r.readMediaBox(dict["/MediaBox"]); mb != nil {
		inh.mediaBox = mb
	}
	if rot, ok := dictInt(dict, "/Rotate", r.Resolve); ok {
		norm := normalizeRotation(rot)
		inh.rotate = &norm
	}
	if res, ok := dict["/Resources"]; ok {
		inh.resources = res
	}

	nodeType, _ := dictName(dict, "/Type")
	if nodeType == "/Page" || (nodeType == "" && dict["/Kids"] == nil) {
		page, err := r.buildPage(dict, inh)
		if err != nil {
			return err
		}
		doc.Pages = append(doc.Pages, page)
		return nil
	}

	kids, ok := r.Resolve(dict["/Kids"]).(ArrayObject)
	if !ok {
		return nil
	}
	for _, kid := range kids {
		if err := r.walkPages(kid, inh, doc, visited, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) buildPage(dict DictionaryObject, inh inherited) (domain.Page, error) {
	page := domain.Page{
		MediaBox: defaultMediaBox,
	}
	if inh.mediaBox != nil {
		page.MediaBox = *inh.mediaBox
	}
	if inh.rotate != nil {
		page.Rotation = *inh.rotate
	}

	content, filter, err := r.pageContent(dict["/Contents"])
	if err != nil {
		return domain.Page{}, err
	}
	page.Content = content
	page.ContentFilter = filter

	if inh.resources != nil {
		page.Resources = r.resolveDeep(inh.resources, map[int]bool{})
	}
	return page, nil
}

// pageContent concatenates and decodes a page's content streams. When a
// single stream uses a filter the codec cannot decode, the raw payload is
// kept and the filter name reported.
func (r *Reader) pageContent(contents Object) ([]byte, string, error) {
	if contents == nil {
		return nil, "", nil
	}
	resolved := r.Resolve(contents)

	var streams []*StreamObject
	switch v := resolved.(type) {
	case *StreamObject:
		streams = []*StreamObject{v}
	case ArrayObject:
		for _, item := range v {
			if s, ok := r.Resolve(item).(*StreamObject); ok {
				streams = append(streams, s)
			}
		}
	default:
		return nil, "", nil
	}

	var out []byte
	for _, s := range streams {
		decoded, err := r.decodeStream(s)
		if err != nil {
			if len(streams) == 1 {
				if f, _ := dictName(s.Dictionary, "/Filter"); f != "" {
					return append([]byte(nil), s.Data...), f, nil
				}
			}
			return nil, "", apperrors.NewMalformedDocument("undecodable content stream", err)
		}
		if len(out) > 0 {
			out = append(out, '\n')
		}
		out = append(out, decoded...)
	}
	return out, "", nil
}

func (r *Reader) readMediaBox(obj Object) *domain.MediaBox {
	if obj == nil {
		return nil
	}
	arr, ok := r.Resolve(obj).(ArrayObject)
	if !ok || len(arr) != 4 {
		return nil
	}
	vals := make([]float64, 4)
	for i, item := range arr {
		n, ok := r.Resolve(item).(NumberObject)
		if !ok {
			return nil
		}
		vals[i] = float64(n)
	}
	box := &domain.MediaBox{Left: vals[0], Bottom: vals[1], Right: vals[2], Top: vals[3]}
	// normalize swapped corners
	if box.Right < box.Left {
		box.Left, box.Right = box.Right, box.Left
	}
	if box.Top < box.Bottom {
		box.Bottom, box.Top = box.Top, box.Bottom
	}
	return box
}

func (r *Reader) readInfo() map[string]string {
	infoRef, ok := r.trailer["/Info"]
	if !ok {
		return nil
	}
	info, ok := r.Resolve(infoRef).(DictionaryObject)
	if !ok {
		return nil
	}
	out := make(map[string]string)
	for k, v := range info {
		switch s := r.Resolve(v).(type) {
		case StringObject:
			out[trimSlash(k)] = string(s)
		case HexStringObject:
			out[trimSlash(k)] = string(s)
		case NameObject:
			out[trimSlash(k)] = trimSlash(string(s))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func trimSlash(s string) string {
	if len(s) > 0 && s[0] == '/' {
		return s[1:]
	}
	return s
}

func normalizeRotation(rot int) int {
	rot %= 360
	if rot < 0 {
		rot += 360
	}
	// rotation is constrained to quarter turns
	return rot - rot%90
}

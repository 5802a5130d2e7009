package service

import (
	"fmt"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

// PageOpsService implements the pure page transformations over the
// document model. Every method returns a fresh document; inputs are never
// mutated or aliased into outputs.
type PageOpsService struct {
	logger domain.Logger
}

// NewPageOpsService creates the page operations engine
func NewPageOpsService(logger domain.Logger) *PageOpsService {
	return &PageOpsService{logger: logger}
}

// Merge concatenates pages of the given documents in order, renumbering
// the result 1..N.
func (s *PageOpsService) Merge(docs []*domain.Document) (*domain.Document, error) {
	if len(docs) == 0 {
		return nil, apperrors.NewInvalidRequest("merge requires at least one document")
	}
	if len(docs) == 1 {
		out := docs[0].Clone()
		out.Renumber()
		return out, nil
	}

	out := &domain.Document{Validity: domain.ValidityWellFormed}
	for _, doc := range docs {
		clone := doc.Clone()
		out.Pages = append(out.Pages, clone.Pages...)
	}
	out.Metadata = copyMetadata(docs[0].Metadata)
	out.Renumber()
	s.logger.Debug("Merged documents", "inputs", len(docs), "pages", out.PageCount())
	return out, nil
}

// Split cuts the document into contiguous segments and returns one
// document per segment. A plain index list is read as segment boundaries
// (each index is the last page of a segment); explicit "a-b" parts are
// read as the segments themselves and must be ascending and disjoint.
func (s *PageOpsService) Split(doc *domain.Document, pages *domain.PageRange) ([]*domain.Document, error) {
	n := doc.PageCount()
	var segments [][2]int

	if pages == nil {
		// one document per page
		for i := 1; i <= n; i++ {
			segments = append(segments, [2]int{i, i})
		}
	} else if pages.IsPlainList() {
		boundaries, err := pages.Resolve(n)
		if err != nil {
			return nil, err
		}
		prev := 0
		for _, b := range boundaries {
			if b <= prev {
				return nil, apperrors.NewInvalidRequest(
					fmt.Sprintf("split boundaries must be strictly ascending, got %d after %d", b, prev))
			}
			segments = append(segments, [2]int{prev + 1, b})
			prev = b
		}
		if prev < n {
			segments = append(segments, [2]int{prev + 1, n})
		}
	} else {
		segs, err := pages.Segments(n)
		if err != nil {
			return nil, err
		}
		prevEnd := 0
		for _, seg := range segs {
			if seg[0] <= prevEnd {
				return nil, apperrors.NewInvalidRequest(
					fmt.Sprintf("split segments overlap at page %d", seg[0]))
			}
			prevEnd = seg[1]
		}
		segments = segs
	}

	if len(segments) == 0 {
		return nil, apperrors.NewInvalidRequest("split produced no segments")
	}

	outs := make([]*domain.Document, 0, len(segments))
	for _, seg := range segments {
		part := &domain.Document{Validity: domain.ValidityWellFormed, Metadata: copyMetadata(doc.Metadata)}
		for idx := seg[0]; idx <= seg[1]; idx++ {
			part.Pages = append(part.Pages, clonePage(&doc.Pages[idx-1]))
		}
		part.Renumber()
		outs = append(outs, part)
	}
	return outs, nil
}

// Extract returns a document holding the selected pages in selection
// order. Duplicate indices are honored: the page appears once per mention.
func (s *PageOpsService) Extract(doc *domain.Document, pages *domain.PageRange) (*domain.Document, error) {
	if pages == nil {
		return nil, apperrors.NewInvalidRequest("extract requires a page selection")
	}
	selected, err := pages.Resolve(doc.PageCount())
	if err != nil {
		return nil, err
	}
	out := &domain.Document{Validity: domain.ValidityWellFormed, Metadata: copyMetadata(doc.Metadata)}
	for _, idx := range selected {
		out.Pages = append(out.Pages, clonePage(&doc.Pages[idx-1]))
	}
	out.Renumber()
	return out, nil
}

// RemovePages deletes the selected pages and renumbers the remainder.
// Removing every page is rejected: at least one page must remain.
func (s *PageOpsService) RemovePages(doc *domain.Document, pages *domain.PageRange) (*domain.Document, error) {
	if pages == nil {
		return nil, apperrors.NewInvalidRequest("remove-pages requires a page selection")
	}
	selected, err := pages.Resolve(doc.PageCount())
	if err != nil {
		return nil, err
	}

	out := doc.Clone()
	remove := make(map[int]bool, len(selected))
	for _, idx := range selected {
		remove[idx] = true
	}
	for i := range out.Pages {
		if remove[out.Pages[i].Index] {
			out.Pages[i].Deleted = true
		}
	}

	kept := out.Pages[:0]
	for _, p := range out.Pages {
		if !p.Deleted {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil, apperrors.NewInvalidRequest("at least one page must remain")
	}
	out.Pages = kept
	out.Renumber()
	return out, nil
}

// Organize reorders pages by the given permutation of 1..N. The order
// must mention every existing page exactly once.
func (s *PageOpsService) Organize(doc *domain.Document, order []int) (*domain.Document, error) {
	n := doc.PageCount()
	if len(order) != n {
		return nil, apperrors.NewInvalidRequest(
			fmt.Sprintf("page order lists %d pages, document has %d", len(order), n))
	}
	seen := make(map[int]bool, n)
	for _, idx := range order {
		if idx < 1 || idx > n {
			return nil, apperrors.NewInvalidRequest(fmt.Sprintf("page %d is out of range", idx))
		}
		if seen[idx] {
			return nil, apperrors.NewInvalidRequest(fmt.Sprintf("page %d appears more than once", idx))
		}
		seen[idx] = true
	}

	out := &domain.Document{Validity: domain.ValidityWellFormed, Metadata: copyMetadata(doc.Metadata)}
	for _, idx := range order {
		out.Pages = append(out.Pages, clonePage(&doc.Pages[idx-1]))
	}
	out.Renumber()
	return out, nil
}

var validAngles = map[int]bool{90: true, 180: true, 270: true, -90: true}

// Rotate adds the angle to each selected page's rotation, modulo 360.
// A nil selection rotates every page.
func (s *PageOpsService) Rotate(doc *domain.Document, pages *domain.PageRange, angle int) (*domain.Document, error) {
	if !validAngles[angle] {
		return nil, apperrors.NewInvalidRequest(
			fmt.Sprintf("angle must be 90, 180, 270 or -90, got %d", angle))
	}
	selected, err := selectedSet(doc, pages)
	if err != nil {
		return nil, err
	}

	out := doc.Clone()
	for i := range out.Pages {
		if !selected[out.Pages[i].Index] {
			continue
		}
		rot := (out.Pages[i].Rotation + angle) % 360
		if rot < 0 {
			rot += 360
		}
		out.Pages[i].Rotation = rot
	}
	return out, nil
}

// Crop shrinks each selected page's media box by the given margins.
// Margins that consume a page's full width or height are rejected.
func (s *PageOpsService) Crop(doc *domain.Document, pages *domain.PageRange, m domain.CropMargins) (*domain.Document, error) {
	if m.Left < 0 || m.Right < 0 || m.Bottom < 0 || m.Top < 0 {
		return nil, apperrors.NewInvalidRequest("crop margins must not be negative")
	}
	selected, err := selectedSet(doc, pages)
	if err != nil {
		return nil, err
	}

	out := doc.Clone()
	for i := range out.Pages {
		p := &out.Pages[i]
		if !selected[p.Index] {
			continue
		}
		if m.Left+m.Right >= p.MediaBox.Width() || m.Bottom+m.Top >= p.MediaBox.Height() {
			return nil, apperrors.NewInvalidRequest(
				fmt.Sprintf("crop margins exceed page %d dimensions", p.Index))
		}
		p.MediaBox = domain.MediaBox{
			Left:   p.MediaBox.Left + m.Left,
			Bottom: p.MediaBox.Bottom + m.Bottom,
			Right:  p.MediaBox.Right - m.Right,
			Top:    p.MediaBox.Top - m.Top,
		}
	}
	return out, nil
}

// Compress returns a copy whose serialized form recompresses content
// streams and deduplicates shared resource streams. Page count, content
// and rotations are untouched; the writer performs the byte-level work.
func (s *PageOpsService) Compress(doc *domain.Document) (*domain.Document, error) {
	return doc.Clone(), nil
}

// copyMetadata duplicates a metadata map. Every operation propagates the
// source document's metadata (the first input's, for merge) into its outputs.
func copyMetadata(meta map[string]string) map[string]string {
	if meta == nil {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

func clonePage(p *domain.Page) domain.Page {
	cp := *p
	cp.Content = append([]byte(nil), p.Content...)
	cp.Deleted = false
	return cp
}

// selectedSet resolves an optional selection to a page index set; nil
// selects every page.
func selectedSet(doc *domain.Document, pages *domain.PageRange) (map[int]bool, error) {
	set := make(map[int]bool)
	if pages == nil {
		for i := 1; i <= doc.PageCount(); i++ {
			set[i] = true
		}
		return set, nil
	}
	selected, err := pages.Resolve(doc.PageCount())
	if err != nil {
		return nil, err
	}
	for _, idx := range selected {
		set[idx] = true
	}
	return set, nil
}

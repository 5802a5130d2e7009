package pdf

import (
	"sort"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

// DefaultRepairPolicy keeps any reconstruction that recovered at least one
// page. The boundary is pluggable because upstream tools disagree on it.
type DefaultRepairPolicy struct{}

// Recoverable implements domain.RepairPolicy
func (DefaultRepairPolicy) Recoverable(recoveredPages, totalObjects int) bool {
	return recoveredPages > 0
}

// Repairer rebuilds documents from damaged bytes by scanning for object
// markers, ignoring the cross-reference data entirely.
type Repairer struct {
	policy domain.RepairPolicy
}

// NewRepairer creates a repairer with the given recoverability policy.
// A nil policy selects the default.
func NewRepairer(policy domain.RepairPolicy) *Repairer {
	if policy == nil {
		policy = DefaultRepairPolicy{}
	}
	return &Repairer{policy: policy}
}

// Repair reconstructs the page tree from whatever objects survive in the
// byte stream. Documents the policy rejects fail as unrecoverable.
func (rp *Repairer) Repair(data []byte) (*domain.Document, error) {
	offsets := ScanObjectOffsets(data)
	if len(offsets) == 0 {
		return nil, apperrors.NewUnrecoverable("no indirect objects found in input", nil)
	}

	r := &Reader{
		data:     data,
		entries:  make(map[int]xrefEntry, len(offsets)),
		cache:    make(map[int]Object),
		trailer:  DictionaryObject{},
		validity: domain.ValidityRepairable,
	}
	for num, off := range offsets {
		r.entries[num] = xrefEntry{offset: off}
	}

	// Prefer walking an intact catalog; fall back on loose page objects.
	if catalogNum := r.findCatalog(); catalogNum > 0 {
		r.trailer["/Root"] = IndirectObject{ObjectNumber: catalogNum}
		if doc, err := r.BuildDocument(); err == nil {
			if !rp.policy.Recoverable(doc.PageCount(), len(offsets)) {
				return nil, apperrors.NewUnrecoverable("repair policy rejected the reconstruction", nil)
			}
			doc.Validity = domain.ValidityWellFormed
			return doc, nil
		}
	}

	doc := r.collectLoosePages()
	if doc == nil || !rp.policy.Recoverable(doc.PageCount(), len(offsets)) {
		return nil, apperrors.NewUnrecoverable("no pages could be reconstructed", nil)
	}
	doc.Validity = domain.ValidityWellFormed
	return doc, nil
}

func (r *Reader) findCatalog() int {
	nums := sortedObjectNumbers(r.entries)
	for _, num := range nums {
		obj, err := r.GetObject(num)
		if err != nil {
			continue
		}
		if dict, ok := obj.(DictionaryObject); ok {
			if t, _ := dictName(dict, "/Type"); t == "/Catalog" {
				return num
			}
		}
	}
	return 0
}

// collectLoosePages assembles a document from bare /Type /Page objects in
// object-number order.
func (r *Reader) collectLoosePages() *domain.Document {
	doc := &domain.Document{Validity: domain.ValidityRepairable}
	for _, num := range sortedObjectNumbers(r.entries) {
		obj, err := r.GetObject(num)
		if err != nil {
			continue
		}
		dict, ok := obj.(DictionaryObject)
		if !ok {
			continue
		}
		if t, _ := dictName(dict, "/Type"); t != "/Page" {
			continue
		}
		inh := inherited{}
		if res, ok := dict["/Resources"]; ok {
			inh.resources = res
		}
		if mb := r.readMediaBox(dict["/MediaBox"]); mb != nil {
			inh.mediaBox = mb
		}
		if rot, ok := dictInt(dict, "/Rotate", r.Resolve); ok {
			norm := normalizeRotation(rot)
			inh.rotate = &norm
		}
		page, err := r.buildPage(dict, inh)
		if err != nil {
			continue
		}
		doc.Pages = append(doc.Pages, page)
	}
	if len(doc.Pages) == 0 {
		return nil
	}
	doc.Renumber()
	return doc
}

func sortedObjectNumbers(entries map[int]xrefEntry) []int {
	nums := make([]int, 0, len(entries))
	for num := range entries {
		nums = append(nums, num)
	}
	sort.Ints(nums)
	return nums
}

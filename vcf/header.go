package vcf

import "fmt"

// Header owns the dictionary and record table of a variant-call file header.
//
// A Header is not safe for concurrent mutation; hand it between goroutines,
// do not share it.
type Header struct {
	dict    *dict
	records []headerLine

	// Subset maps each sample position in this header to the sample's
	// position in the template header it was subset from, with -1 marking a
	// requested sample that the template did not contain. Nil unless the
	// header was produced by FromTemplateSubset.
	Subset []int
}

// New returns an empty, writable header holding only the mandatory
// fileformat declaration.
func New() *Header {
	h := &Header{dict: newDict()}
	h.records = append(h.records, headerLine{
		category: categoryGeneric,
		key:      "fileformat",
		value:    "VCFv4.2",
	})
	return h
}

// FromTemplate deep-copies src. The copy is independently mutable.
func FromTemplate(src *Header) *Header {
	h := &Header{
		dict:    src.dict.clone(),
		records: make([]headerLine, len(src.records)),
	}
	for i, rec := range src.records {
		h.records[i] = rec
		h.records[i].pairs = append([]Pair(nil), rec.pairs...)
	}
	return h
}

// FromTemplateSubset deep-copies src and restricts the sample namespace to
// exactly samples, in the given order. The returned header's Subset field
// maps each new sample position to its position in src, with -1 for samples
// src did not contain. Fails with ErrDuplicateSampleName when samples
// contains repeats.
func FromTemplateSubset(src *Header, samples []string) (*Header, error) {
	h := FromTemplate(src)
	h.dict.samples = newTable()
	h.Subset = make([]int, 0, len(samples))

	seen := make(map[string]bool, len(samples))
	for _, name := range samples {
		if seen[name] {
			return nil, ErrDuplicateSampleName
		}
		seen[name] = true
		h.dict.samples.push(name)
		if orig, ok := src.dict.samples.lookup(name); ok {
			h.Subset = append(h.Subset, orig)
		} else {
			h.Subset = append(h.Subset, -1)
		}
	}
	return h, nil
}

// Clone returns an independent deep copy of the header.
func (h *Header) Clone() *Header {
	return FromTemplate(h)
}

// PushSample appends one sample to the sample namespace. Duplicate names are
// accepted here; duplicates are only rejected during subsetting.
func (h *Header) PushSample(name string) *Header {
	h.dict.samples.push(name)
	return h
}

// PushRecord parses one structured or generic ##-line and appends it to the
// record table, registering any contig or tag it defines.
func (h *Header) PushRecord(line string) error {
	rec, err := parseHeaderLine(line)
	if err != nil {
		return err
	}

	switch rec.category {
	case categoryFilter:
		h.dict.tag(rec.id()).filter = true
	case categoryInfo:
		def, err := parseTagDef(line, &rec)
		if err != nil {
			return err
		}
		h.dict.tag(rec.id()).info = &def
	case categoryFormat:
		def, err := parseTagDef(line, &rec)
		if err != nil {
			return err
		}
		h.dict.tag(rec.id()).format = &def
	case categoryContig:
		h.dict.contigs.add(rec.id())
	}

	h.records = append(h.records, rec)
	return nil
}

// RemoveFilter removes the named FILTER entry. Removing an absent tag is a
// no-op.
func (h *Header) RemoveFilter(tag string) *Header {
	h.remove(categoryFilter, tag)
	if e, _, ok := h.dict.tagLookup(tag); ok {
		e.filter = false
	}
	return h
}

// RemoveInfo removes the named INFO entry. Removing an absent tag is a no-op.
func (h *Header) RemoveInfo(tag string) *Header {
	h.remove(categoryInfo, tag)
	if e, _, ok := h.dict.tagLookup(tag); ok {
		e.info = nil
	}
	return h
}

// RemoveFormat removes the named FORMAT entry. Removing an absent tag is a
// no-op.
func (h *Header) RemoveFormat(tag string) *Header {
	h.remove(categoryFormat, tag)
	if e, _, ok := h.dict.tagLookup(tag); ok {
		e.format = nil
	}
	return h
}

// RemoveContig removes the named contig record. The contig keeps its id in
// the dictionary so ids held by callers stay valid.
func (h *Header) RemoveContig(tag string) *Header {
	h.remove(categoryContig, tag)
	return h
}

// RemoveStructured removes the named structured record.
func (h *Header) RemoveStructured(tag string) *Header {
	h.remove(categoryStructured, tag)
	return h
}

// RemoveGeneric removes the named generic record. The leading fileformat
// declaration is never removed.
func (h *Header) RemoveGeneric(key string) *Header {
	for i := 1; i < len(h.records); i++ {
		if h.records[i].category == categoryGeneric && h.records[i].key == key {
			h.records = append(h.records[:i], h.records[i+1:]...)
			return h
		}
	}
	return h
}

func (h *Header) remove(category recordCategory, tag string) {
	for i := range h.records {
		if h.records[i].category == category && h.records[i].id() == tag {
			h.records = append(h.records[:i], h.records[i+1:]...)
			return
		}
	}
}

// HeaderRecords decodes the record table, excluding the leading fileformat
// declaration, into typed records in source order.
//
// Records only enter the table through PushRecord, which assigns every
// category itself; a category outside the known set means the header's own
// invariants are broken, and that defect is surfaced as a panic rather than
// coerced into a default record.
func (h *Header) HeaderRecords() []HeaderRecord {
	if len(h.records) <= 1 {
		return nil
	}
	out := make([]HeaderRecord, 0, len(h.records)-1)
	for _, rec := range h.records[1:] {
		pairs := append([]Pair(nil), rec.pairs...)
		switch rec.category {
		case categoryFilter:
			out = append(out, FilterRecord{Key: rec.key, Pairs: pairs})
		case categoryInfo:
			out = append(out, InfoRecord{Key: rec.key, Pairs: pairs})
		case categoryFormat:
			out = append(out, FormatRecord{Key: rec.key, Pairs: pairs})
		case categoryContig:
			out = append(out, ContigRecord{Key: rec.key, Pairs: pairs})
		case categoryStructured:
			out = append(out, StructuredRecord{Key: rec.key, Pairs: pairs})
		case categoryGeneric:
			out = append(out, GenericRecord{Key: rec.key, Value: rec.value})
		default:
			panic(fmt.Sprintf("vcf: unknown header record category %d", rec.category))
		}
	}
	return out
}

// SampleCount returns the number of samples in the header.
func (h *Header) SampleCount() int {
	return len(h.dict.samples.names)
}

// Samples returns the sample names in namespace order.
func (h *Header) Samples() []string {
	return append([]string(nil), h.dict.samples.names...)
}

// ContigToID resolves a contig name to its id.
func (h *Header) ContigToID(name string) (Id, error) {
	i, ok := h.dict.contigs.lookup(name)
	if !ok {
		return 0, &UnknownSequenceError{Name: name}
	}
	return Id(i), nil
}

// IDToContig returns the contig name for id. The id must originate from this
// header's contig namespace.
func (h *Header) IDToContig(id Id) string {
	return h.dict.contigs.names[id]
}

// SampleToID resolves a sample name to its id.
func (h *Header) SampleToID(name string) (Id, error) {
	i, ok := h.dict.samples.lookup(name)
	if !ok {
		return 0, &UnknownSampleError{Name: name}
	}
	return Id(i), nil
}

// IDToSample returns the sample name for id. The id must originate from this
// header's sample namespace.
func (h *Header) IDToSample(id Id) string {
	return h.dict.samples.names[id]
}

// NameToID resolves a FILTER/INFO/FORMAT name in the shared tag table.
func (h *Header) NameToID(name string) (Id, error) {
	_, id, ok := h.dict.tagLookup(name)
	if !ok {
		return 0, &UnknownIDError{Name: name}
	}
	return id, nil
}

// IDToName returns the tag name for id. The id must originate from this
// header's tag namespace.
func (h *Header) IDToName(id Id) string {
	return h.dict.tags[id].name
}

// InfoType returns the value type and arity of an INFO tag.
func (h *Header) InfoType(tag string) (TagType, TagLength, error) {
	e, _, ok := h.dict.tagLookup(tag)
	if !ok || e.info == nil {
		return 0, 0, &UnknownTagError{Tag: tag}
	}
	return decodeTagDef(e.info)
}

// FormatType returns the value type and arity of a FORMAT tag.
func (h *Header) FormatType(tag string) (TagType, TagLength, error) {
	e, _, ok := h.dict.tagLookup(tag)
	if !ok || e.format == nil {
		return 0, 0, &UnknownTagError{Tag: tag}
	}
	return decodeTagDef(e.format)
}

func decodeTagDef(def *tagDef) (TagType, TagLength, error) {
	typ, err := decodeTagType(def.typeCode)
	if err != nil {
		return 0, 0, err
	}
	length, err := decodeTagLength(def.lengthCode)
	if err != nil {
		return 0, 0, err
	}
	return typ, length, nil
}

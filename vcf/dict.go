// Package vcf models the header of a variant-call file: the contig, sample
// and tag dictionaries, the structured ##-records that define them, and
// header cloning with optional sample subsetting.
package vcf

// Id identifies an entry in exactly one header namespace (contigs, samples,
// or the shared FILTER/INFO/FORMAT tag table). Ids are dense indices assigned
// in insertion order; an Id from one namespace must not be used in another.
type Id uint32

// TagType is the scalar value kind of an INFO or FORMAT tag.
type TagType int

const (
	Flag TagType = iota
	Integer
	Float
	String
)

func (t TagType) String() string {
	switch t {
	case Flag:
		return "Flag"
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	case String:
		return "String"
	}
	return "Unknown"
}

// TagLength is the arity policy of an INFO or FORMAT tag.
type TagLength int

const (
	// Fixed means a fixed number of values per record.
	Fixed TagLength = iota
	// Variable means the number of values is determined by the caller.
	Variable
	// AltAlleles means one value per alternate allele.
	AltAlleles
	// Alleles means one value per allele, including the reference.
	Alleles
	// Genotypes means one value per possible genotype combination.
	Genotypes
)

func (l TagLength) String() string {
	switch l {
	case Fixed:
		return "Fixed"
	case Variable:
		return "Variable"
	case AltAlleles:
		return "AltAlleles"
	case Alleles:
		return "Alleles"
	case Genotypes:
		return "Genotypes"
	}
	return "Unknown"
}

// Raw type and length codes as stored in the tag table. These match the
// on-disk codes of the binary container format, so they are decoded
// defensively: an out-of-range code means a corrupt or newer-than-supported
// header, not a programming error here.
const (
	codeTypeFlag    = 0
	codeTypeInteger = 1
	codeTypeFloat   = 2
	codeTypeString  = 3

	codeLengthFixed      = 0
	codeLengthVariable   = 1
	codeLengthAltAlleles = 2
	codeLengthGenotypes  = 3
	codeLengthAlleles    = 4
)

func decodeTagType(code uint8) (TagType, error) {
	switch code {
	case codeTypeFlag:
		return Flag, nil
	case codeTypeInteger:
		return Integer, nil
	case codeTypeFloat:
		return Float, nil
	case codeTypeString:
		return String, nil
	}
	return 0, ErrUnexpectedTagType
}

func decodeTagLength(code uint8) (TagLength, error) {
	switch code {
	case codeLengthFixed:
		return Fixed, nil
	case codeLengthVariable:
		return Variable, nil
	case codeLengthAltAlleles:
		return AltAlleles, nil
	case codeLengthGenotypes:
		return Genotypes, nil
	case codeLengthAlleles:
		return Alleles, nil
	}
	return 0, ErrUnexpectedTagType
}

// tagDef is the typed definition carried by an INFO or FORMAT header record.
type tagDef struct {
	typeCode   uint8
	lengthCode uint8
	number     int // fixed value count when lengthCode is codeLengthFixed
}

// tagEntry is one row of the shared tag table. A single name may be defined
// in any combination of the FILTER, INFO and FORMAT categories.
type tagEntry struct {
	name   string
	filter bool
	info   *tagDef
	format *tagDef
}

// table is an interned-string table with O(1) lookups in both directions.
type table struct {
	names []string
	index map[string]int
}

func newTable() table {
	return table{index: make(map[string]int)}
}

// add appends name unless it is already interned and returns its index.
func (t *table) add(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	t.names = append(t.names, name)
	i := len(t.names) - 1
	t.index[name] = i
	return i
}

// push appends name unconditionally. A duplicate keeps its original index in
// the lookup map, so by-name resolution always finds the first occurrence.
func (t *table) push(name string) int {
	t.names = append(t.names, name)
	i := len(t.names) - 1
	if _, ok := t.index[name]; !ok {
		t.index[name] = i
	}
	return i
}

func (t *table) lookup(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

func (t *table) clone() table {
	c := table{
		names: append([]string(nil), t.names...),
		index: make(map[string]int, len(t.index)),
	}
	for k, v := range t.index {
		c.index[k] = v
	}
	return c
}

// dict owns the three header namespaces. All strings are interned here, so
// ids stay valid across header cloning and mutation.
type dict struct {
	contigs table
	samples table
	tags    []tagEntry
	tagIdx  map[string]int
}

func newDict() *dict {
	return &dict{
		contigs: newTable(),
		samples: newTable(),
		tagIdx:  make(map[string]int),
	}
}

func (d *dict) clone() *dict {
	c := &dict{
		contigs: d.contigs.clone(),
		samples: d.samples.clone(),
		tags:    make([]tagEntry, len(d.tags)),
		tagIdx:  make(map[string]int, len(d.tagIdx)),
	}
	for i, e := range d.tags {
		c.tags[i] = e
		if e.info != nil {
			def := *e.info
			c.tags[i].info = &def
		}
		if e.format != nil {
			def := *e.format
			c.tags[i].format = &def
		}
	}
	for k, v := range d.tagIdx {
		c.tagIdx[k] = v
	}
	return c
}

// tag returns the shared-table entry for name, interning it first if needed.
func (d *dict) tag(name string) *tagEntry {
	if i, ok := d.tagIdx[name]; ok {
		return &d.tags[i]
	}
	d.tags = append(d.tags, tagEntry{name: name})
	d.tagIdx[name] = len(d.tags) - 1
	return &d.tags[len(d.tags)-1]
}

func (d *dict) tagLookup(name string) (*tagEntry, Id, bool) {
	i, ok := d.tagIdx[name]
	if !ok {
		return nil, 0, false
	}
	return &d.tags[i], Id(i), true
}

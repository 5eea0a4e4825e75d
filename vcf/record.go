package vcf

import (
	"strconv"
	"strings"
)

// Pair is one attribute of a structured header record. Attribute order is
// preserved exactly as written in the source line.
type Pair struct {
	Key   string
	Value string
}

// HeaderRecord is one decoded ##-record from a header. The concrete type is
// one of FilterRecord, InfoRecord, FormatRecord, ContigRecord,
// StructuredRecord or GenericRecord.
type HeaderRecord interface {
	headerRecord()
}

// FilterRecord is a ##FILTER=<...> record.
type FilterRecord struct {
	Key   string
	Pairs []Pair
}

// InfoRecord is a ##INFO=<...> record.
type InfoRecord struct {
	Key   string
	Pairs []Pair
}

// FormatRecord is a ##FORMAT=<...> record.
type FormatRecord struct {
	Key   string
	Pairs []Pair
}

// ContigRecord is a ##contig=<...> record.
type ContigRecord struct {
	Key   string
	Pairs []Pair
}

// StructuredRecord is any other ##KEY=<...> record, e.g. ##ALT or ##META.
type StructuredRecord struct {
	Key   string
	Pairs []Pair
}

// GenericRecord is an unstructured ##key=value record.
type GenericRecord struct {
	Key   string
	Value string
}

func (FilterRecord) headerRecord()     {}
func (InfoRecord) headerRecord()       {}
func (FormatRecord) headerRecord()     {}
func (ContigRecord) headerRecord()     {}
func (StructuredRecord) headerRecord() {}
func (GenericRecord) headerRecord()    {}

// recordCategory tags the internal record table. The set is closed: records
// only enter the table through parseHeaderLine, which assigns one of these.
type recordCategory int

const (
	categoryFilter recordCategory = iota
	categoryInfo
	categoryFormat
	categoryContig
	categoryStructured
	categoryGeneric
)

// headerLine is one entry of the header's internal record table.
type headerLine struct {
	category recordCategory
	key      string // category keyword for structured records, key for generic
	pairs    []Pair // structured records only
	value    string // generic records only
}

// id returns the ID attribute of a structured record, or "" if absent.
func (l *headerLine) id() string {
	for _, p := range l.pairs {
		if p.Key == "ID" {
			return p.Value
		}
	}
	return ""
}

// parseHeaderLine decodes one ##CATEGORY=<k=v,...> or ##key=value line.
func parseHeaderLine(line string) (headerLine, error) {
	text := strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(text, "##") {
		return headerLine{}, &ParseError{Line: line, Message: "expected ## prefix"}
	}
	body := text[2:]
	eq := strings.IndexByte(body, '=')
	if eq <= 0 {
		return headerLine{}, &ParseError{Line: line, Message: "expected key=value"}
	}
	key, rest := body[:eq], body[eq+1:]

	if !strings.HasPrefix(rest, "<") {
		return headerLine{category: categoryGeneric, key: key, value: rest}, nil
	}
	if !strings.HasSuffix(rest, ">") {
		return headerLine{}, &ParseError{Line: line, Message: "unterminated structured record"}
	}
	pairs, err := parsePairs(rest[1 : len(rest)-1])
	if err != nil {
		return headerLine{}, &ParseError{Line: line, Message: err.Error()}
	}

	rec := headerLine{key: key, pairs: pairs}
	switch key {
	case "FILTER":
		rec.category = categoryFilter
	case "INFO":
		rec.category = categoryInfo
	case "FORMAT":
		rec.category = categoryFormat
	case "contig":
		rec.category = categoryContig
	default:
		rec.category = categoryStructured
	}
	if rec.id() == "" {
		return headerLine{}, &ParseError{Line: line, Message: "missing ID attribute"}
	}
	return rec, nil
}

// parsePairs walks the comma-separated attribute list inside <...>. Values
// may be double-quoted, in which case they can contain commas and
// backslash-escaped characters.
func parsePairs(s string) ([]Pair, error) {
	var pairs []Pair
	i := 0
	for i < len(s) {
		eq := strings.IndexByte(s[i:], '=')
		if eq <= 0 {
			return nil, errAttr
		}
		key := s[i : i+eq]
		i += eq + 1

		var val strings.Builder
		if i < len(s) && s[i] == '"' {
			i++
			closed := false
			for i < len(s) {
				c := s[i]
				if c == '\\' && i+1 < len(s) {
					val.WriteByte(s[i+1])
					i += 2
					continue
				}
				if c == '"' {
					i++
					closed = true
					break
				}
				val.WriteByte(c)
				i++
			}
			if !closed {
				return nil, errQuote
			}
			if i < len(s) {
				if s[i] != ',' {
					return nil, errAttr
				}
				i++
			}
		} else {
			if comma := strings.IndexByte(s[i:], ','); comma >= 0 {
				val.WriteString(s[i : i+comma])
				i += comma + 1
			} else {
				val.WriteString(s[i:])
				i = len(s)
			}
		}
		pairs = append(pairs, Pair{Key: key, Value: val.String()})
	}
	if len(pairs) == 0 {
		return nil, errAttr
	}
	return pairs, nil
}

var (
	errAttr  = parseFailure("expected comma-separated key=value attributes")
	errQuote = parseFailure("unterminated quoted value")
)

type parseFailure string

func (e parseFailure) Error() string { return string(e) }

// parseTagDef derives the typed tag definition from the Number and Type
// attributes of an INFO or FORMAT record.
func parseTagDef(line string, rec *headerLine) (tagDef, error) {
	var number, typ string
	for _, p := range rec.pairs {
		switch p.Key {
		case "Number":
			number = p.Value
		case "Type":
			typ = p.Value
		}
	}
	if number == "" || typ == "" {
		return tagDef{}, &ParseError{Line: line, Message: "missing Number or Type attribute"}
	}

	var def tagDef
	switch typ {
	case "Flag":
		def.typeCode = codeTypeFlag
	case "Integer":
		def.typeCode = codeTypeInteger
	case "Float":
		def.typeCode = codeTypeFloat
	case "String", "Character":
		def.typeCode = codeTypeString
	default:
		return tagDef{}, &ParseError{Line: line, Message: "unrecognized Type " + typ}
	}
	switch number {
	case ".":
		def.lengthCode = codeLengthVariable
	case "A":
		def.lengthCode = codeLengthAltAlleles
	case "R":
		def.lengthCode = codeLengthAlleles
	case "G":
		def.lengthCode = codeLengthGenotypes
	default:
		n, err := strconv.Atoi(number)
		if err != nil || n < 0 {
			return tagDef{}, &ParseError{Line: line, Message: "unrecognized Number " + number}
		}
		def.lengthCode = codeLengthFixed
		def.number = n
	}
	return def, nil
}

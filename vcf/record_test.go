package vcf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeaderLine_Generic(t *testing.T) {
	rec, err := parseHeaderLine("##fileDate=20260829")
	require.NoError(t, err)
	assert.Equal(t, categoryGeneric, rec.category)
	assert.Equal(t, "fileDate", rec.key)
	assert.Equal(t, "20260829", rec.value)
}

func TestParseHeaderLine_Structured(t *testing.T) {
	rec, err := parseHeaderLine(`##INFO=<ID=DP,Number=1,Type=Integer,Description="Total depth">`)
	require.NoError(t, err)
	assert.Equal(t, categoryInfo, rec.category)
	assert.Equal(t, "INFO", rec.key)
	assert.Equal(t, []Pair{
		{Key: "ID", Value: "DP"},
		{Key: "Number", Value: "1"},
		{Key: "Type", Value: "Integer"},
		{Key: "Description", Value: "Total depth"},
	}, rec.pairs)
}

func TestParseHeaderLine_QuotedValues(t *testing.T) {
	rec, err := parseHeaderLine(`##FILTER=<ID=lowQ,Description="q < 10, or depth < 5 (\"shallow\")">`)
	require.NoError(t, err)
	assert.Equal(t, categoryFilter, rec.category)
	assert.Equal(t, []Pair{
		{Key: "ID", Value: "lowQ"},
		{Key: "Description", Value: `q < 10, or depth < 5 ("shallow")`},
	}, rec.pairs)
}

func TestParseHeaderLine_CategoryMapping(t *testing.T) {
	tests := []struct {
		line     string
		category recordCategory
	}{
		{`##FILTER=<ID=q10,Description="d">`, categoryFilter},
		{`##INFO=<ID=DP,Number=1,Type=Integer>`, categoryInfo},
		{`##FORMAT=<ID=GT,Number=1,Type=String>`, categoryFormat},
		{`##contig=<ID=chr1>`, categoryContig},
		{`##ALT=<ID=DEL>`, categoryStructured},
		{`##PEDIGREE=<ID=Derived,Original=Ancestor>`, categoryStructured},
		{`##reference=GRCh38`, categoryGeneric},
	}
	for _, tt := range tests {
		rec, err := parseHeaderLine(tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.category, rec.category, tt.line)
	}
}

func TestParseHeaderLine_Malformed(t *testing.T) {
	tests := []string{
		"",
		"#CHROM\tPOS",
		"##",
		"##=value",
		"##INFO=<ID=DP,Number=1,Type=Integer", // unterminated
		"##INFO=<>",
		`##INFO=<Number=1,Type=Integer>`, // no ID
		`##FILTER=<ID=q10,Description="unterminated>`,
	}
	for _, line := range tests {
		_, err := parseHeaderLine(line)
		var parseErr *ParseError
		assert.ErrorAs(t, err, &parseErr, "line %q", line)
	}
}

func TestParseHeaderLine_PreservesAttributeOrder(t *testing.T) {
	rec, err := parseHeaderLine(`##contig=<length=1000,assembly=b38,ID=chr9>`)
	require.NoError(t, err)
	assert.Equal(t, []Pair{
		{Key: "length", Value: "1000"},
		{Key: "assembly", Value: "b38"},
		{Key: "ID", Value: "chr9"},
	}, rec.pairs, "attribute order must match the source line")
	assert.Equal(t, "chr9", rec.id())
}

func TestParseTagDef(t *testing.T) {
	tests := []struct {
		number, typ string
		typeCode    uint8
		lengthCode  uint8
		count       int
	}{
		{"1", "Integer", codeTypeInteger, codeLengthFixed, 1},
		{"4", "String", codeTypeString, codeLengthFixed, 4},
		{"0", "Flag", codeTypeFlag, codeLengthFixed, 0},
		{".", "Float", codeTypeFloat, codeLengthVariable, 0},
		{"A", "Integer", codeTypeInteger, codeLengthAltAlleles, 0},
		{"R", "Integer", codeTypeInteger, codeLengthAlleles, 0},
		{"G", "Float", codeTypeFloat, codeLengthGenotypes, 0},
		{"1", "Character", codeTypeString, codeLengthFixed, 1},
	}
	for _, tt := range tests {
		line := `##INFO=<ID=X,Number=` + tt.number + `,Type=` + tt.typ + `>`
		rec, err := parseHeaderLine(line)
		require.NoError(t, err)
		def, err := parseTagDef(line, &rec)
		require.NoError(t, err, line)
		assert.Equal(t, tt.typeCode, def.typeCode, line)
		assert.Equal(t, tt.lengthCode, def.lengthCode, line)
		assert.Equal(t, tt.count, def.number, line)
	}
}

func TestParseTagDef_Invalid(t *testing.T) {
	tests := []string{
		`##INFO=<ID=X,Number=1>`,
		`##INFO=<ID=X,Type=Integer>`,
		`##INFO=<ID=X,Number=-2,Type=Integer>`,
		`##INFO=<ID=X,Number=many,Type=Integer>`,
		`##INFO=<ID=X,Number=1,Type=Complex>`,
	}
	for _, line := range tests {
		rec, err := parseHeaderLine(line)
		require.NoError(t, err, line)
		_, err = parseTagDef(line, &rec)
		var parseErr *ParseError
		assert.ErrorAs(t, err, &parseErr, line)
	}
}

func TestDecodeTagCodes(t *testing.T) {
	for code, want := range map[uint8]TagType{0: Flag, 1: Integer, 2: Float, 3: String} {
		got, err := decodeTagType(code)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := decodeTagType(12)
	assert.ErrorIs(t, err, ErrUnexpectedTagType)

	for code, want := range map[uint8]TagLength{
		0: Fixed, 1: Variable, 2: AltAlleles, 3: Genotypes, 4: Alleles,
	} {
		got, err := decodeTagLength(code)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err = decodeTagLength(9)
	assert.ErrorIs(t, err, ErrUnexpectedTagType)
}

package vcf

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateSampleName is returned by FromTemplateSubset when the
	// requested sample list contains the same name twice.
	ErrDuplicateSampleName = errors.New("duplicate sample name when subsetting header")

	// ErrUnexpectedTagType is returned when a tag's stored type or length
	// code does not map onto the recognized enums, indicating a corrupt or
	// newer-than-supported header.
	ErrUnexpectedTagType = errors.New("unexpected tag type in header")
)

// UnknownSequenceError is returned when a contig name is not in the header.
type UnknownSequenceError struct {
	Name string
}

func (e *UnknownSequenceError) Error() string {
	return fmt.Sprintf("sequence %s not found in header", e.Name)
}

// UnknownSampleError is returned when a sample name is not in the header.
type UnknownSampleError struct {
	Name string
}

func (e *UnknownSampleError) Error() string {
	return fmt.Sprintf("sample %s not found in header", e.Name)
}

// UnknownIDError is returned when a FILTER/INFO/FORMAT name is not in the
// header's tag table.
type UnknownIDError struct {
	Name string
}

func (e *UnknownIDError) Error() string {
	return fmt.Sprintf("ID %s not found in header", e.Name)
}

// UnknownTagError is returned by InfoType and FormatType for a tag that is
// not defined in the queried category.
type UnknownTagError struct {
	Tag string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("tag %s is undefined in header", e.Tag)
}

// ParseError reports a malformed header record line.
type ParseError struct {
	Line    string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed header record %q: %s", e.Line, e.Message)
}

package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// Directive parsing (MalformedDirective family)
	DirInfo                Code = 1000
	DirUnterminatedArgs    Code = 1001
	DirBadString           Code = 1002
	DirUnknownDirective    Code = 1003
	DirUnknownKey          Code = 1004
	DirSpaceBeforeBrace    Code = 1005
	DirUnterminatedBlock   Code = 1006
	DirMissingSelector     Code = 1007
	DirBadSelector         Code = 1008
	DirBadConstraint       Code = 1009
	DirBadRegex            Code = 1010
	DirMissingPattern      Code = 1011
	DirDuplicateTestName   Code = 1012
	DirExpectationOutside  Code = 1013
	DirBadArgument         Code = 1014
	DirDuplicateKey        Code = 1015
	DirTrailingGarbage     Code = 1016
	DirMissingName         Code = 1017
	DirNestedTest          Code = 1018

	// Preamble resolution (CollaboratorError family)
	IncInfo            Code = 1100
	IncFileNotFound    Code = 1101
	IncCycle           Code = 1102
	IncUnknownDefaults Code = 1103

	// I/O
	IOInfo          Code = 1200
	IOLoadFileError Code = 1201
)

func (c Code) String() string {
	return fmt.Sprintf("DT%04d", uint16(c))
}

// IsMalformedDirective reports whether the code belongs to the
// directive-parsing error family.
func (c Code) IsMalformedDirective() bool {
	return c >= DirInfo && c < IncInfo
}

// IsCollaboratorError reports whether the code belongs to the
// include/defaults resolution error family.
func (c Code) IsCollaboratorError() bool {
	return c >= IncInfo && c < IOInfo
}

package preamble

// builtinDefaults maps @load_defaults tags to preamble snippets shared
// by every case of a file. The tags mirror the language families of the
// stock toolchain definitions; a project manifest can override or
// extend them.
var builtinDefaults = map[string]string{
	"c": `/* diagtest defaults: c */
#include <stddef.h>
#include <stdint.h>
`,
	"gnu": `/* diagtest defaults: gnu c */
#include <stddef.h>
#include <stdint.h>
`,
	"c++": `/* diagtest defaults: c++ */
#include <cstddef>
#include <cstdint>
`,
	"gnu++": `/* diagtest defaults: gnu c++ */
#include <cstddef>
#include <cstdint>
`,
}

// BuiltinTags lists the known defaults tags, for error messages.
func BuiltinTags() []string {
	return []string{"c", "c++", "gnu", "gnu++"}
}

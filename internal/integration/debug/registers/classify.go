// Package registers resolves x86 register values from a debug session.
//
// It classifies register names by width, flattens the adapter's
// scope/variable tree into a name→value cache, and reads memory windows at
// the address a register holds through a gdb-compatible backend.
package registers

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// Classify returns the width in bytes of the register name: 1, 2, 4 or 8,
// or 0 when the name is not recognized. It is defined for every input.
func Classify(name string) int {
	if name == "" {
		return 0
	}
	name = strings.ToLower(name)

	// low/high byte aliases
	if strings.HasSuffix(name, "l") || strings.HasSuffix(name, "h") {
		return 1
	}

	first, last := name[0], name[len(name)-1]
	switch len(name) {
	case 3:
		switch {
		case first == 'e' && last == 'x':
			return 4
		case first == 'r' && last == 'x':
			return 8
		}
		switch name {
		case "ebp", "r8d", "r9d":
			return 4
		case "r8w", "r9w":
			return 2
		case "r8b", "r9b":
			return 1
		case "rbp", "rsp", "r10", "r11", "r12", "r13", "r14", "r15":
			return 8
		}
	case 2:
		if first >= 'a' && first <= 'd' && last == 'x' {
			return 2
		}
		switch name {
		case "bp":
			return 2
		case "r8", "r9":
			return 8
		}
	case 4:
		if first == 'r' {
			switch last {
			case 'd':
				return 4
			case 'w':
				return 2
			case 'b':
				return 1
			}
		}
	}
	return 0
}

// hoverNames are the register spellings a hover can resolve.
var hoverNames = []string{
	"rax", "rbx", "rcx", "rdx", "rsi", "rdi", "rbp", "rsp", "rip",
	"eax", "ebx", "ecx", "edx", "esi", "edi", "ebp", "esp", "eip",
	"ax", "bx", "cx", "dx", "si", "di", "bp", "sp",
	"ah", "al", "bh", "bl", "ch", "cl", "dh", "dl",
	"sil", "dil", "bpl", "spl",
	"cs", "ds", "es", "ss", "fs", "gs",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
	"r8w", "r9w", "r10w", "r11w", "r12w", "r13w", "r14w", "r15w",
	"r8d", "r9d", "r10d", "r11d", "r12d", "r13d", "r14d", "r15d",
	"r8b", "r9b", "r10b", "r11b", "r12b", "r13b", "r14b", "r15b",
}

// Pattern matches a register name as a whole word, case-insensitively.
var Pattern = compilePattern(hoverNames)

func compilePattern(names []string) *regexp.Regexp {
	sorted := append([]string(nil), names...)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})
	return regexp.MustCompile(`(?i)\b(` + strings.Join(sorted, "|") + `)\b`)
}

// Token is a register name found in a line of text.
type Token struct {
	// Name is the lowercase register name.
	Name string

	// Start and End are the byte offsets of the match in the line.
	Start, End int
}

// FindAt returns the register token under col in line. A cursor placed
// directly after the last character still selects the token.
func FindAt(line string, col int) (Token, bool) {
	if col < 0 || col > len(line) {
		return Token{}, false
	}
	for _, loc := range Pattern.FindAllStringIndex(line, -1) {
		if col >= loc[0] && col <= loc[1] {
			return Token{
				Name:  strings.ToLower(line[loc[0]:loc[1]]),
				Start: loc[0],
				End:   loc[1],
			}, true
		}
	}
	return Token{}, false
}

// archWidths maps lowercase register names to their architectural width,
// built from the x86 decoder's register table.
var archWidths = buildArchWidths()

func buildArchWidths() map[string]int {
	widths := make(map[string]int)
	add := func(from, to x86asm.Reg, width int) {
		for r := from; r <= to; r++ {
			widths[asmName(r)] = width
		}
	}
	add(x86asm.AL, x86asm.R15B, 1)
	add(x86asm.AX, x86asm.R15W, 2)
	add(x86asm.EAX, x86asm.R15L, 4)
	add(x86asm.RAX, x86asm.R15, 8)
	add(x86asm.ES, x86asm.GS, 2)
	widths[asmName(x86asm.IP)] = 2
	widths[asmName(x86asm.EIP)] = 4
	widths[asmName(x86asm.RIP)] = 8
	return widths
}

// asmName converts the decoder's register spelling to the one assemblers
// and gdb use.
func asmName(r x86asm.Reg) string {
	name := strings.ToLower(r.String())
	switch name {
	case "spb":
		return "spl"
	case "bpb":
		return "bpl"
	case "sib":
		return "sil"
	case "dib":
		return "dil"
	}
	// r8l..r15l are the 32-bit r8d..r15d
	if strings.HasPrefix(name, "r") && strings.HasSuffix(name, "l") {
		return strings.TrimSuffix(name, "l") + "d"
	}
	return name
}

// ArchWidth returns the architectural width in bytes of a register name.
// Unlike Classify it knows every general-purpose, pointer and segment
// register.
func ArchWidth(name string) (int, bool) {
	w, ok := archWidths[strings.ToLower(name)]
	return w, ok
}

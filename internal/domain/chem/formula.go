package chem

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/turtacn/mechstereo/pkg/errors"
)

// Formula is an elemental composition: element symbol → atom count.
type Formula map[string]int

// ParseFormula parses a Hill-style formula such as "C4H10O".  A "." separates
// components and a leading integer multiplies a component ("2H2O").
func ParseFormula(s string) (Formula, error) {
	f := Formula{}
	if s == "" {
		return f, nil
	}
	for _, comp := range strings.Split(s, ".") {
		mult, rest := leadingInt(comp)
		if mult == 0 {
			mult = 1
		}
		part, err := parseComponent(rest)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidIdentifier, "invalid formula").WithDetail(s)
		}
		for el, n := range part {
			f[el] += n * mult
		}
	}
	return f, nil
}

func parseComponent(s string) (Formula, error) {
	f := Formula{}
	runes := []rune(s)
	for i := 0; i < len(runes); {
		if !unicode.IsUpper(runes[i]) {
			return nil, errors.Newf(errors.ErrCodeInvalidIdentifier, "unexpected %q at %d", runes[i], i)
		}
		j := i + 1
		for j < len(runes) && unicode.IsLower(runes[j]) {
			j++
		}
		el := string(runes[i:j])
		k := j
		for k < len(runes) && unicode.IsDigit(runes[k]) {
			k++
		}
		n := 1
		if k > j {
			n, _ = strconv.Atoi(string(runes[j:k]))
		}
		f[el] += n
		i = k
	}
	return f, nil
}

func leadingInt(s string) (int, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, s
	}
	n, _ := strconv.Atoi(s[:i])
	return n, s[i:]
}

// Join returns the sum of f and o.  Neither operand is modified.
func (f Formula) Join(o Formula) Formula {
	out := make(Formula, len(f)+len(o))
	for el, n := range f {
		out[el] += n
	}
	for el, n := range o {
		out[el] += n
	}
	return out
}

// Equal reports whether f and o have identical atom counts.
func (f Formula) Equal(o Formula) bool {
	return f.String() == o.String()
}

// AtomCount returns the total number of atoms.
func (f Formula) AtomCount() int {
	n := 0
	for _, c := range f {
		n += c
	}
	return n
}

// String renders f in Hill order: C, then H, then the rest alphabetically;
// without carbon every element is alphabetical.
func (f Formula) String() string {
	els := make([]string, 0, len(f))
	for el, n := range f {
		if n > 0 {
			els = append(els, el)
		}
	}
	_, hasC := f["C"]
	hasC = hasC && f["C"] > 0
	rank := func(el string) int {
		if !hasC {
			return 2
		}
		switch el {
		case "C":
			return 0
		case "H":
			return 1
		}
		return 2
	}
	sort.Slice(els, func(i, j int) bool {
		ri, rj := rank(els[i]), rank(els[j])
		if ri != rj {
			return ri < rj
		}
		return els[i] < els[j]
	})

	var sb strings.Builder
	for _, el := range els {
		sb.WriteString(el)
		if f[el] > 1 {
			sb.WriteString(strconv.Itoa(f[el]))
		}
	}
	return sb.String()
}

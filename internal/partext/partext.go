// Package partext parses the colon-delimited "key: value" parameter files
// written by radar processors alongside their binary grids.
//
// A line contributes an entry when it matches
//
//	key: value [units...]
//
// where key is a word. Any other line (titles, blank lines, comments) is
// skipped. Values are typed leniently: the whole value is tried as a float,
// then its first field (Gamma appends units such as "decimal degrees"),
// and otherwise the trimmed string is kept.
package partext

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var lineRE = regexp.MustCompile(`^\s*(\w+)\s*:\s*(.*?)\s*$`)

// maxLine bounds a single parameter line.
const maxLine = 1 << 20

// Value is one parsed parameter value.
type Value struct {
	// Raw is the trimmed text after the colon.
	Raw string
	// Number is valid when IsNumber is true.
	Number   float64
	IsNumber bool
}

// ParameterSet maps parameter names to their values.
type ParameterSet map[string]Value

// Parse reads every key/value line from r. Later duplicates override
// earlier ones.
func Parse(r io.Reader) (ParameterSet, error) {
	set := make(ParameterSet)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLine)
	for sc.Scan() {
		m := lineRE.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		set[m[1]] = parseValue(m[2])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading parameters: %w", err)
	}
	return set, nil
}

// ParseString parses parameters from a string.
func ParseString(s string) (ParameterSet, error) {
	return Parse(strings.NewReader(s))
}

func parseValue(raw string) Value {
	v := Value{Raw: raw}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		v.Number, v.IsNumber = f, true
		return v
	}
	if fields := strings.Fields(raw); len(fields) > 0 {
		if f, err := strconv.ParseFloat(fields[0], 64); err == nil {
			v.Number, v.IsNumber = f, true
		}
	}
	return v
}

// Float returns the numeric value of key.
func (p ParameterSet) Float(key string) (float64, bool) {
	v, ok := p[key]
	if !ok || !v.IsNumber {
		return 0, false
	}
	return v.Number, true
}

// Int returns the value of key when it is a whole number.
func (p ParameterSet) Int(key string) (int, bool) {
	f, ok := p.Float(key)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// String returns the raw text of key.
func (p ParameterSet) String(key string) (string, bool) {
	v, ok := p[key]
	return v.Raw, ok
}

// Has reports whether key was present.
func (p ParameterSet) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Missing returns the keys absent from p, in the order given.
func (p ParameterSet) Missing(keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if !p.Has(k) {
			missing = append(missing, k)
		}
	}
	return missing
}

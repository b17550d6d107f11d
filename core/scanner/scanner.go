package scanner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
)

// binarySniffLen is how much of a file is checked for NUL bytes.
const binarySniffLen = 8 << 10

var ErrBinaryFile = errors.New("file looks binary")

// requireCall matches require('users/...') and require("users/...").
// Surrounding code is never parsed, so malformed scripts still scan.
var requireCall = regexp.MustCompile(`\brequire\s*\(\s*(?:'(users/[^'\r\n]*)'|"(users/[^"\r\n]*)")\s*\)`)

// Scan returns the distinct import strings found in text, sorted.
func Scan(text []byte) []string {
	seen := make(map[string]struct{})
	for _, m := range requireCall.FindAllSubmatch(text, -1) {
		imp := m[1]
		if len(imp) == 0 {
			imp = m[2]
		}
		seen[string(imp)] = struct{}{}
	}

	imports := make([]string, 0, len(seen))
	for imp := range seen {
		imports = append(imports, imp)
	}
	sort.Strings(imports)
	return imports
}

// ScanFile reads path and scans it. On any failure the import set is empty
// and the error says why.
func ScanFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	sniff := src
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrBinaryFile, path)
	}

	return Scan(src), nil
}

// Package cache detects dataset changes between load cycles by fingerprinting
// the loaded worksheets, so downstream index rebuilds only happen when the
// data actually moved.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"quasarcli/pkg/contracts/domain"
)

// emptyFingerprint is the fixed fingerprint of an empty dataset.
var emptyFingerprint = md5hex([]byte("empty_cache"))

// Fingerprint derives a stable md5 fingerprint from the loaded worksheets.
// Per worksheet it covers the key, the row/column shape, the column names,
// and a short content hash of the first and last five rows, so both schema
// and content edits change the fingerprint while row-internal reorderings of
// the middle do not force a rebuild.
func Fingerprint(sheets map[string]domain.RawSheet) string {
	if len(sheets) == 0 {
		return emptyFingerprint
	}

	keys := make([]string, 0, len(sheets))
	for k := range sheets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		sheet := sheets[key]
		sig := []string{
			"key:" + key,
			fmt.Sprintf("shape:(%d, %d)", len(sheet.Rows), len(sheet.Header)),
			"columns:" + strings.Join(sheet.Header, ","),
		}
		if len(sheet.Rows) > 0 {
			head := renderCSV(sheet.Header, firstN(sheet.Rows, 5))
			tail := renderCSV(sheet.Header, lastN(sheet.Rows, 5))
			content := md5hex([]byte(head + tail))
			sig = append(sig, "content:"+content[:8])
		}
		parts = append(parts, strings.Join(sig, "|"))
	}

	return md5hex([]byte(strings.Join(parts, "||")))
}

func firstN(rows [][]string, n int) [][]string {
	if len(rows) <= n {
		return rows
	}
	return rows[:n]
}

func lastN(rows [][]string, n int) [][]string {
	if len(rows) <= n {
		return rows
	}
	return rows[len(rows)-n:]
}

func renderCSV(header []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteByte('\n')
	for _, row := range rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}
	return b.String()
}

func md5hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

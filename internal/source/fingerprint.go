package source

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

// fieldSep and rowSep never occur in CSV cell text produced by the readers.
const (
	fieldSep = "\x1f"
	rowSep   = "\x1e"
)

func (r *Row) key() string {
	return strings.Join(r.Values(), fieldSep)
}

// Fingerprint hashes the batch content in order. Line numbers are not part of
// the hash, so the same extract saved with extra blank lines still matches.
func Fingerprint(rows []Row) string {
	h := xxh3.New()
	for i := range rows {
		_, _ = h.WriteString(rows[i].key())
		_, _ = h.WriteString(rowSep)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// DropDuplicates removes rows whose every field equals an earlier row,
// keeping the first occurrence. It returns the kept rows and the dropped ones.
func DropDuplicates(rows []Row) (kept, dropped []Row) {
	seen := make(map[string]struct{}, len(rows))
	kept = make([]Row, 0, len(rows))
	for _, r := range rows {
		k := r.key()
		if _, ok := seen[k]; ok {
			dropped = append(dropped, r)
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, r)
	}
	return kept, dropped
}

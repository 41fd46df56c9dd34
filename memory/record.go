package memory

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/hupe1980/voicemesh/core"
)

// MinSaveMessages is the smallest dialogue worth persisting.
const MinSaveMessages = 2

// recordNamespace seeds deterministic record ids.
var recordNamespace = uuid.MustParse("6f1c1d52-3b7e-4c57-9d0e-6a0f3d8b2a41")

// RecordID derives a stable id for a message within scope, so saving the same
// dialogue twice updates records instead of duplicating them.
func RecordID(scope core.MemoryScope, role core.Role, content string) string {
	key := scope.UserID + "\x00" + scope.Agent + "\x00" + string(role) + "\x00" + content
	return uuid.NewSHA1(recordNamespace, []byte(key)).String()
}

// Records converts a dialogue into memory records. System and tool messages
// and messages without text are dropped; repeated messages collapse into one
// record. Timestamps step up by a microsecond per record so later messages
// sort as newer; Seq carries the same order for stores with coarser clocks.
func Records(scope core.MemoryScope, msgs []core.Message, now time.Time) []core.MemoryRecord {
	seen := make(map[string]struct{}, len(msgs))
	out := make([]core.MemoryRecord, 0, len(msgs))

	for _, m := range msgs {
		if m.Role == core.RoleSystem || m.Role == core.RoleTool {
			continue
		}

		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}

		id := RecordID(scope, m.Role, content)
		if _, dup := seen[id]; dup {
			continue
		}

		seen[id] = struct{}{}

		seq := len(out)
		ts := now.Add(time.Duration(seq) * time.Microsecond)

		out = append(out, core.MemoryRecord{
			ID:        id,
			Role:      m.Role,
			Content:   content,
			CreatedAt: ts,
			UpdatedAt: ts,
			Seq:       seq,
		})
	}

	return out
}

// Terms splits a query into lower-cased search terms. Text without word
// separators stays one term.
func Terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))

	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}

		seen[f] = struct{}{}
		out = append(out, f)
	}

	return out
}

// Matches reports whether content contains any of terms. No terms match
// everything.
func Matches(content string, terms []string) bool {
	if len(terms) == 0 {
		return true
	}

	lc := strings.ToLower(content)
	for _, t := range terms {
		if strings.Contains(lc, t) {
			return true
		}
	}

	return false
}

// SortNewestFirst orders records by timestamp, newest first, then by Seq,
// highest first.
func SortNewestFirst(recs []core.MemoryRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		ti, tj := recs[i].Timestamp(), recs[j].Timestamp()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}

		return recs[i].Seq > recs[j].Seq
	})
}

// Format renders records as prompt lines "- [2006-01-02 15:04:05] content".
func Format(recs []core.MemoryRecord) string {
	lines := make([]string, 0, len(recs))
	for _, r := range recs {
		lines = append(lines, "- ["+r.Timestamp().Format(time.DateTime)+"] "+r.Content)
	}

	return strings.Join(lines, "\n")
}

package manifest

import (
	"sort"
	"strings"

	"github.com/dmitrijs2005/gdcfetch/internal/models"
)

// ExtensionFilter is an allow-list of file extensions. The zero value
// allows everything.
type ExtensionFilter struct {
	allowed map[string]struct{}
}

// NewExtensionFilter parses a comma-separated list such as "bam, .BAI".
func NewExtensionFilter(list string) ExtensionFilter {
	f := ExtensionFilter{}
	for _, part := range strings.Split(list, ",") {
		ext := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(part)), ".")
		if ext == "" {
			continue
		}
		if f.allowed == nil {
			f.allowed = make(map[string]struct{})
		}
		f.allowed[ext] = struct{}{}
	}
	return f
}

func (f ExtensionFilter) Empty() bool {
	return len(f.allowed) == 0
}

func (f ExtensionFilter) Allows(e models.ManifestEntry) bool {
	if f.Empty() {
		return true
	}
	_, ok := f.allowed[e.Extension()]
	return ok
}

// Extensions returns the allowed extensions, sorted.
func (f ExtensionFilter) Extensions() []string {
	out := make([]string, 0, len(f.allowed))
	for ext := range f.allowed {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Split partitions entries into allowed and rejected, keeping order.
func (f ExtensionFilter) Split(entries []models.ManifestEntry) (kept, rejected []models.ManifestEntry) {
	if f.Empty() {
		return entries, nil
	}
	for _, e := range entries {
		if f.Allows(e) {
			kept = append(kept, e)
		} else {
			rejected = append(rejected, e)
		}
	}
	return kept, rejected
}

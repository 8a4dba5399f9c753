package schools

import (
	"math/rand/v2"
	"strings"
)

// Option is one <option> of a registry select.
type Option struct {
	Value string `yaml:"value"`
	Text  string `yaml:"text"`
}

// Entry is one search: a school type combined with a region.
type Entry struct {
	Type   Option `yaml:"type"`
	Region Option `yaml:"region"`
}

func (e Entry) String() string {
	return e.Type.Text + ", " + e.Region.Text
}

// BuildEntries returns the cartesian product of school types and regions,
// skipping placeholder options with empty text. When rnd is non-nil the
// entries are shuffled so that slow regions spread across workers.
func BuildEntries(types, regions []Option, rnd *rand.Rand) []Entry {
	types = nonEmpty(types)
	regions = nonEmpty(regions)

	entries := make([]Entry, 0, len(types)*len(regions))
	for _, t := range types {
		for _, r := range regions {
			entries = append(entries, Entry{Type: t, Region: r})
		}
	}
	if rnd != nil {
		rnd.Shuffle(len(entries), func(i, j int) { entries[i], entries[j] = entries[j], entries[i] })
	}
	return entries
}

func nonEmpty(opts []Option) []Option {
	out := make([]Option, 0, len(opts))
	for _, o := range opts {
		if strings.TrimSpace(o.Text) != "" {
			out = append(out, o)
		}
	}
	return out
}

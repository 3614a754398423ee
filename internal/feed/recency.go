package feed

import (
	"sort"
	"time"

	"example.com/dealroom/internal/domain"
)

// Bucket is a labeled slice of the feed for display grouping.
type Bucket struct {
	Label   string
	IsToday bool
	Entries []domain.FeedEntry
}

type keyedBucket struct {
	Bucket
	sortKey int
}

// GroupByRecency partitions an already newest-first feed page into display
// buckets: Today, Yesterday, This Week, This Month, then calendar month
// buckets for anything older. Labels depend on the wall clock supplied by the
// caller, so the same page groups differently across renders; that is display
// behaviour, not a defect. Entry order within a bucket is the input order.
//
// Bucket order is guaranteed by an explicit numeric sort key, never by map
// iteration or insertion order. Each input entry lands in exactly one bucket.
func GroupByRecency(now time.Time, entries []domain.FeedEntry) []Bucket {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	byLabel := make(map[string]*keyedBucket)
	ordered := make([]*keyedBucket, 0, 4)

	for _, entry := range entries {
		label, key, isToday := bucketFor(now, dayStart, entry.Activity.CreatedAt)
		b, ok := byLabel[label]
		if !ok {
			b = &keyedBucket{Bucket: Bucket{Label: label, IsToday: isToday}, sortKey: key}
			byLabel[label] = b
			ordered = append(ordered, b)
		}
		b.Entries = append(b.Entries, entry)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].sortKey < ordered[j].sortKey
	})

	out := make([]Bucket, 0, len(ordered))
	for _, b := range ordered {
		out = append(out, b.Bucket)
	}
	return out
}

// Flatten concatenates bucket entries in bucket order. Flattening the output
// of GroupByRecency reproduces its input exactly.
func Flatten(buckets []Bucket) []domain.FeedEntry {
	total := 0
	for _, b := range buckets {
		total += len(b.Entries)
	}
	out := make([]domain.FeedEntry, 0, total)
	for _, b := range buckets {
		out = append(out, b.Entries...)
	}
	return out
}

func bucketFor(now, dayStart, created time.Time) (label string, sortKey int, isToday bool) {
	created = created.In(now.Location())

	switch {
	case !created.Before(dayStart):
		return "Today", 0, true
	case !created.Before(dayStart.AddDate(0, 0, -1)):
		return "Yesterday", 1, false
	case !created.Before(dayStart.AddDate(0, 0, -6)):
		return "This Week", 2, false
	case created.Year() == now.Year() && created.Month() == now.Month():
		return "This Month", 3, false
	default:
		// Older months sort by their distance from the current month so the
		// tail is reverse-chronological regardless of arrival order.
		monthsAgo := (now.Year()-created.Year())*12 + int(now.Month()) - int(created.Month())
		return created.Format("January 2006"), 3 + monthsAgo, false
	}
}

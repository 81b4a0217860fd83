// Package analytics turns fully loaded record sets into dashboard summaries.
// Every function recomputes from its input and returns zero-valued results,
// never NaN or an error, for empty input.
package analytics

import (
	"math"
	"sort"
	"time"
)

// Bucket is one fixed-width time slot. Splits holds a count per named
// predicate; every name is present even when its count is zero.
type Bucket struct {
	Label  string         `json:"label"`
	Start  time.Time      `json:"start"`
	Count  int            `json:"count"`
	Splits map[string]int `json:"splits,omitempty"`
}

// Split is a named predicate counted separately inside each bucket.
type Split[T any] struct {
	Name  string
	Match func(T) bool
}

// DailyBuckets counts records into the last days calendar days ending with
// the day containing now, oldest first. Day boundaries follow now's location.
// Records with a zero timestamp or outside the window are not counted.
func DailyBuckets[T any](records []T, now time.Time, days int, ts func(T) time.Time, splits ...Split[T]) []Bucket {
	if days <= 0 {
		return []Bucket{}
	}
	today := startOfDay(now)
	first := today.AddDate(0, 0, -(days - 1))

	buckets := make([]Bucket, days)
	for i := range buckets {
		start := first.AddDate(0, 0, i)
		buckets[i] = newBucket(start.Format("2006-01-02"), start, splits)
	}

	for _, r := range records {
		t := ts(r)
		if t.IsZero() {
			continue
		}
		t = t.In(now.Location())
		if t.Before(first) || !t.Before(today.AddDate(0, 0, 1)) {
			continue
		}
		// calendar-day difference, stable across DST changes
		idx := daysBetween(first, startOfDay(t))
		count(&buckets[idx], r, splits)
	}
	return buckets
}

// MonthlyBuckets is DailyBuckets with calendar months.
func MonthlyBuckets[T any](records []T, now time.Time, months int, ts func(T) time.Time, splits ...Split[T]) []Bucket {
	if months <= 0 {
		return []Bucket{}
	}
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	first := thisMonth.AddDate(0, -(months - 1), 0)

	buckets := make([]Bucket, months)
	for i := range buckets {
		start := first.AddDate(0, i, 0)
		buckets[i] = newBucket(start.Format("2006-01"), start, splits)
	}

	for _, r := range records {
		t := ts(r)
		if t.IsZero() {
			continue
		}
		t = t.In(now.Location())
		idx := (t.Year()-first.Year())*12 + int(t.Month()) - int(first.Month())
		if idx < 0 || idx >= months {
			continue
		}
		count(&buckets[idx], r, splits)
	}
	return buckets
}

func newBucket[T any](label string, start time.Time, splits []Split[T]) Bucket {
	b := Bucket{Label: label, Start: start}
	if len(splits) > 0 {
		b.Splits = make(map[string]int, len(splits))
		for _, s := range splits {
			b.Splits[s.Name] = 0
		}
	}
	return b
}

func count[T any](b *Bucket, r T, splits []Split[T]) {
	b.Count++
	for _, s := range splits {
		if s.Match(r) {
			b.Splits[s.Name]++
		}
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// Count is one histogram entry.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// TopK groups records by key and returns the k largest groups, largest first.
// Groups with equal counts keep the order in which their key was first seen.
// Empty keys are not counted. k <= 0 returns every group.
func TopK[T any](records []T, key func(T) string, k int) []Count {
	counts := make([]Count, 0)
	index := make(map[string]int)
	for _, r := range records {
		kv := key(r)
		if kv == "" {
			continue
		}
		i, ok := index[kv]
		if !ok {
			i = len(counts)
			index[kv] = i
			counts = append(counts, Count{Key: kv})
		}
		counts[i].Count++
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if k > 0 && len(counts) > k {
		counts = counts[:k]
	}
	return counts
}

// Average returns the mean of values, or 0 when there are none.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// AverageOf averages the field selected by val over the records where it is
// defined.
func AverageOf[T any](records []T, val func(T) (float64, bool)) float64 {
	values := make([]float64, 0, len(records))
	for _, r := range records {
		if v, ok := val(r); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			values = append(values, v)
		}
	}
	return Average(values)
}

// PercentChange is the change from prev to cur as a percentage of prev.
// A zero prev yields 0.
func PercentChange(prev, cur float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}

// Ratio returns part/whole as a percentage, or 0 when whole is zero.
func Ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// Delta compares two consecutive periods.
type Delta struct {
	Current  int     `json:"current"`
	Previous int     `json:"previous"`
	Change   int     `json:"change"`
	Percent  float64 `json:"percent"`
}

// PeriodDelta counts records in (now-period, now] against the period before it.
func PeriodDelta[T any](records []T, now time.Time, period time.Duration, ts func(T) time.Time) Delta {
	var d Delta
	curStart := now.Add(-period)
	prevStart := curStart.Add(-period)
	for _, r := range records {
		t := ts(r)
		if t.IsZero() || t.After(now) {
			continue
		}
		switch {
		case t.After(curStart):
			d.Current++
		case t.After(prevStart):
			d.Previous++
		}
	}
	d.Change = d.Current - d.Previous
	d.Percent = Round1(PercentChange(float64(d.Previous), float64(d.Current)))
	return d
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Package classify maps free-text upstream OS category labels onto the fixed
// set of output buckets used across all sources.
package classify

import "strings"

// Bucket is one of the fixed OS share buckets every upstream category is
// assigned to.
type Bucket int

const (
	Mobile Bucket = iota
	ChromeOS
	Linux
	Windows
	Mac
	Other
)

func (b Bucket) String() string {
	switch b {
	case Mobile:
		return "mobile"
	case ChromeOS:
		return "chromeos"
	case Linux:
		return "linux"
	case Windows:
		return "windows"
	case Mac:
		return "mac"
	default:
		return "other"
	}
}

// Keyword sets per bucket, matched case-insensitively as substrings.
// Buckets are tried in declaration order (mobile first) so a label matching
// several sets counts toward exactly one bucket; "Windows Phone" must land
// in mobile rather than windows, and "Arch Linux" in linux rather than mac
// via the "arch" substring appearing nowhere else.
var buckets = []struct {
	bucket   Bucket
	keywords []string
}{
	{Mobile, []string{"android", "ios", "iphone", "ipad", "ipod", "blackberry", "windows phone"}},
	{ChromeOS, []string{"chromeos", "chrome os", "cros"}},
	{Linux, []string{
		"linux", "ubuntu", "debian", "fedora", "arch", "centos", "red hat",
		"suse", "mint", "manjaro", "elementary", "pop!_os", "kali",
	}},
	{Windows, []string{"windows"}},
	{Mac, []string{"macos", "mac os", "macintosh", "os x", "osx"}},
}

// Categorize assigns a label to exactly one bucket. Labels matching no
// keyword set fall into Other.
func Categorize(label string) Bucket {
	lower := strings.ToLower(label)
	for _, b := range buckets {
		for _, kw := range b.keywords {
			if strings.Contains(lower, kw) {
				return b.bucket
			}
		}
	}
	return Other
}

// Totals accumulates share values per bucket.
type Totals struct {
	Linux    float64
	Windows  float64
	Mac      float64
	ChromeOS float64
	Mobile   float64
	Other    float64
}

// Add categorizes label and accumulates value into the matching bucket,
// returning the bucket chosen.
func (t *Totals) Add(label string, value float64) Bucket {
	b := Categorize(label)
	switch b {
	case Mobile:
		t.Mobile += value
	case ChromeOS:
		t.ChromeOS += value
	case Linux:
		t.Linux += value
	case Windows:
		t.Windows += value
	case Mac:
		t.Mac += value
	default:
		t.Other += value
	}
	return b
}

// HasSignal reports whether the accumulated totals carry any linux or
// windows share. Totals without either are ambiguous or empty upstream
// responses and produce no data point.
func (t *Totals) HasSignal() bool {
	return t.Linux != 0 || t.Windows != 0
}

// Sum returns the total share accounted for across all buckets.
func (t *Totals) Sum() float64 {
	return t.Linux + t.Windows + t.Mac + t.ChromeOS + t.Mobile + t.Other
}

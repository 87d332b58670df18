package css

import "time"

type Options struct {
	// SimpleNegation restricts :not() to a single compound selector without nested :not().
	SimpleNegation bool
	// HTML5Checked makes :checked match selected <option> elements.
	HTML5Checked bool
	// VerboseErrors returns selector errors; otherwise they are logged and treated as no match.
	VerboseErrors bool
	// NativeFastPath delegates Select to roots implementing NativeSelector when that is safe.
	NativeFastPath bool
	// CacheResults enables the result cache.
	CacheResults  bool
	CacheCapacity int
	CacheMaxAge   time.Duration
	// Debounce is the time result caching stays paused for a document after a mutation.
	Debounce time.Duration
	Host     Capabilities
}

func DefaultOptions() Options {
	return Options{
		HTML5Checked:  true,
		VerboseErrors: true,
		CacheCapacity: 512,
		CacheMaxAge:   time.Minute,
		Debounce:      15 * time.Millisecond,
		Host:          Capabilities{BulkLookup: true},
	}
}

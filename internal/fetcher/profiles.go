package fetcher

import (
	"math/rand"
	"sync"
	"time"

	"dealer-inventory/internal/config"
)

// ProfileSelector picks an index in [0, n) for a given attempt. It chooses
// both the candidate URL and the header profile.
type ProfileSelector interface {
	Select(attempt, n int) int
}

// RandomSelector picks uniformly at random.
type RandomSelector struct {
	rnd *rand.Rand
	mu  sync.Mutex
}

func NewRandomSelector() *RandomSelector {
	return &RandomSelector{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *RandomSelector) Select(_, n int) int {
	if n <= 1 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}

// RoundRobinSelector maps attempt 1 to index 0, attempt 2 to index 1, and so on.
type RoundRobinSelector struct{}

func (RoundRobinSelector) Select(attempt, n int) int {
	if n <= 1 || attempt < 1 {
		return 0
	}
	return (attempt - 1) % n
}

// DefaultProfiles are used when the configuration lists none.
func DefaultProfiles() []config.HeaderProfile {
	return []config.HeaderProfile{
		{
			Name: "chrome-windows",
			Headers: map[string]string{
				"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
				"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
				"Accept-Language": "en-US,en;q=0.9",
				"Cache-Control":   "no-cache",
			},
		},
		{
			Name: "chrome-mac",
			Headers: map[string]string{
				"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
				"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
				"Accept-Language": "en-US,en;q=0.9",
			},
		},
		{
			Name: "safari-mac",
			Headers: map[string]string{
				"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
				"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
				"Accept-Language": "en-US,en;q=0.9",
			},
		},
		{
			Name: "firefox-linux",
			Headers: map[string]string{
				"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
				"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
				"Accept-Language": "en-US,en;q=0.5",
			},
		},
	}
}

// Package words is the word supply for game sessions. It serves ordered word
// sequences drawn from an embedded list, filtered so that every word contains
// the session's target letter. A session asks for batches; Endless sessions
// keep asking one word at a time, so the sequence is never materialized up
// front.
package words

import (
	"bufio"
	"embed"
	"fmt"
	"math/rand"
	"strings"
	"sync"
)

//go:embed words.txt
var assets embed.FS

var (
	loadOnce sync.Once
	allWords []string
	loadErr  error
)

func load() ([]string, error) {
	loadOnce.Do(func() {
		f, err := assets.Open("words.txt")
		if err != nil {
			loadErr = err
			return
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		for sc.Scan() {
			w := strings.TrimSpace(sc.Text())
			if w == "" || strings.HasPrefix(w, "#") {
				continue
			}
			allWords = append(allWords, strings.ToLower(w))
		}
		loadErr = sc.Err()
	})
	return allWords, loadErr
}

// Provider produces an endless, ordered word sequence for one session. Words
// are shuffled once per provider so every player in the session types the
// same sequence, and different sessions see different orders.
type Provider struct {
	pool   []string
	rng    *rand.Rand
	cursor int
}

// NewProvider builds a provider limited to words containing letter. The seed
// fixes the shuffle order, which keeps tests deterministic.
func NewProvider(letter rune, seed int64) (*Provider, error) {
	words, err := load()
	if err != nil {
		return nil, fmt.Errorf("words: load embedded list: %w", err)
	}

	pool := make([]string, 0, len(words))
	for _, w := range words {
		if strings.ContainsRune(w, letter) {
			pool = append(pool, w)
		}
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("words: no words contain letter %q", letter)
	}

	p := &Provider{rng: rand.New(rand.NewSource(seed))}
	p.pool = make([]string, len(pool))
	copy(p.pool, pool)
	p.shuffle()
	return p, nil
}

// Next returns the following word in the sequence, reshuffling the pool when
// it runs out. The sequence is therefore unbounded.
func (p *Provider) Next() string {
	if p.cursor >= len(p.pool) {
		p.shuffle()
		p.cursor = 0
	}
	w := p.pool[p.cursor]
	p.cursor++
	return w
}

// Batch returns the next n words of the sequence.
func (p *Provider) Batch(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, p.Next())
	}
	return out
}

func (p *Provider) shuffle() {
	p.rng.Shuffle(len(p.pool), func(i, j int) {
		p.pool[i], p.pool[j] = p.pool[j], p.pool[i]
	})
}

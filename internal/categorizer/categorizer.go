package categorizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-insights/internal/models"
)

// Categorizer assigns categories to transactions by keyword matching and
// keeps running per-category totals.
type Categorizer struct {
	mu       sync.Mutex
	cfg      Config
	matchers []*regexp.Regexp // parallel to cfg; nil when a category has no keywords
	totals   map[string]*models.CategoryTotal
	log      zerolog.Logger
}

// New compiles cfg into a categorizer. Overlapping keywords are logged as
// warnings.
func New(cfg Config, log zerolog.Logger) *Categorizer {
	c := &Categorizer{
		cfg:    cfg.Clone(),
		totals: make(map[string]*models.CategoryTotal),
		log:    log,
	}
	c.matchers = make([]*regexp.Regexp, len(c.cfg))
	for i, cat := range c.cfg {
		c.matchers[i] = compile(cat.Keywords)
	}
	c.warnOverlaps()
	return c
}

// NewDefault returns a categorizer over DefaultConfig.
func NewDefault(log zerolog.Logger) *Categorizer {
	return New(DefaultConfig(), log)
}

func compile(keywords []string) *regexp.Regexp {
	parts := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		parts = append(parts, regexp.QuoteMeta(strings.ToLower(kw)))
	}
	if len(parts) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)` + strings.Join(parts, "|"))
}

// Config returns a copy of the active configuration.
func (c *Categorizer) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Clone()
}

// Categorize returns the first category whose keywords appear in
// payee + " " + description, or models.CategoryOther.
func (c *Categorizer) Categorize(payee, description string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.match(payee, description)
}

func (c *Categorizer) match(payee, description string) string {
	text := strings.ToLower(payee + " " + description)
	for i, re := range c.matchers {
		if re != nil && re.MatchString(text) {
			return c.cfg[i].Name
		}
	}
	return models.CategoryOther
}

// CategorizeAll returns a copy of txns with categories assigned and adds
// each transaction to the running totals.
func (c *Categorizer) CategorizeAll(txns []models.Transaction) []models.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := models.CloneAll(txns)
	for i := range out {
		out[i].Category = c.match(out[i].Payee, out[i].Description)

		tot, ok := c.totals[out[i].Category]
		if !ok {
			tot = &models.CategoryTotal{Category: out[i].Category}
			c.totals[out[i].Category] = tot
		}
		tot.Total += math.Abs(out[i].Amount)
		tot.Count++
	}
	return out
}

// Summary reports the running totals, largest total first. Values are
// rounded to two decimal places.
func (c *Categorizer) Summary() []models.CategoryTotal {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.CategoryTotal, 0, len(c.totals))
	for _, t := range c.totals {
		avg := 0.0
		if t.Count > 0 {
			avg = t.Total / float64(t.Count)
		}
		out = append(out, models.CategoryTotal{
			Category: t.Category,
			Total:    round2(t.Total),
			Count:    t.Count,
			Average:  round2(avg),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Reset clears the running totals.
func (c *Categorizer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totals = make(map[string]*models.CategoryTotal)
}

// AddCategory sets the keywords for name, replacing an existing category in
// place or appending a new one.
func (c *Categorizer) AddCategory(name string, keywords []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(name, append([]string(nil), keywords...))
}

// ExtendCategory appends keywords to name. Unknown names are added.
func (c *Categorizer) ExtendCategory(name string, keywords []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var kw []string
	if i := c.cfg.Index(name); i >= 0 {
		kw = append(kw, c.cfg[i].Keywords...)
	}
	c.set(name, append(kw, keywords...))
}

// set installs keywords for name and recompiles only that matcher.
func (c *Categorizer) set(name string, keywords []string) {
	if i := c.cfg.Index(name); i >= 0 {
		c.cfg[i].Keywords = keywords
		c.matchers[i] = compile(keywords)
	} else {
		c.cfg = append(c.cfg, models.Category{Name: name, Keywords: keywords})
		c.matchers = append(c.matchers, compile(keywords))
	}
	c.warnOverlaps()
}

// Overlaps reports keywords that make a later category unreachable for some
// inputs.
func (c *Categorizer) Overlaps() []Overlap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return FindOverlaps(c.cfg)
}

func (c *Categorizer) warnOverlaps() {
	for _, o := range FindOverlaps(c.cfg) {
		c.log.Warn().
			Str("kind", string(o.Kind)).
			Str("keyword", o.Keyword).
			Str("category", o.Category).
			Str("shadowed_keyword", o.ShadowedKeyword).
			Str("shadowed_category", o.ShadowedCategory).
			Msg("overlapping category keyword")
	}
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

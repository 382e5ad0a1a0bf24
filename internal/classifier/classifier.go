// Package classifier implements the deterministic, rule-based intent
// classifier (C6): fixed-precedence keyword/regex matching over Hungarian
// customer-service messages.
package classifier

import (
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/chatbuddy/core/internal/domain"
	"github.com/chatbuddy/core/pkg/textx"
	"gopkg.in/yaml.v3"
)

const (
	strongConfidence = 0.9
	fallbackConfidence = 0.5
)

var orderIDPattern = regexp.MustCompile(`#\d{6,10}`)
var trackingPattern = regexp.MustCompile(`(?i)(GLS|DPD)\d{8,12}`)
var productIDPattern = regexp.MustCompile(`(?i)SKU-?\d{3,8}`)

// categoryKeyword pairs a product category tag with the Hungarian nouns
// that name it. Checked in order so the first category mentioned in the
// message wins when more than one appears.
type categoryKeyword struct {
	category string
	keywords []string
}

var categoryKeywords = []categoryKeyword{
	{category: "phone", keywords: []string{"telefon", "okostelefon", "mobil"}},
	{category: "laptop", keywords: []string{"laptop", "notebook"}},
	{category: "tablet", keywords: []string{"tablet"}},
	{category: "audio", keywords: []string{"fülhallgató", "headset", "hangszóró"}},
	{category: "tv", keywords: []string{"televízió", "tévé"}},
}

// rule is one precedence tier: a handler kind plus the keywords that match it.
type rule struct {
	kind     domain.HandlerKind
	keywords []string
}

// defaultRules fixes the precedence order: marketing outranks
// recommendation, which outranks order, which outranks product. "general"
// is the fallback and carries no keywords.
var defaultRules = []rule{
	{kind: domain.HandlerMarketing, keywords: []string{"kedvezmény", "akció", "promóció", "kupon", "newsletter"}},
	{kind: domain.HandlerRecommendation, keywords: []string{"ajánl", "hasonló", "népszerű", "trend"}},
	{kind: domain.HandlerOrder, keywords: []string{"rendelés", "szállítás", "státusz", "tracking", "követés"}},
	{kind: domain.HandlerProduct, keywords: []string{"termék", "telefon", "ár", "készlet", "specifik"}},
}

// Classifier matches message text against defaultRules, optionally
// overridden from a keyword table file.
type Classifier struct {
	rules []rule
}

// New builds a classifier using the built-in keyword table.
func New() *Classifier {
	return &Classifier{rules: defaultRules}
}

// keywordOverrideFile is the yaml shape accepted by LoadKeywordOverrides:
// a map of handler kind name -> keyword list, applied in the fixed
// defaultRules precedence order (kinds absent from the file keep their
// built-in keywords).
type keywordOverrideFile map[string][]string

// LoadKeywordOverrides reads a yaml keyword-table override from path and
// returns a Classifier using it in place of the built-in keywords for any
// kind present in the file. Precedence order is unchanged.
func LoadKeywordOverrides(path string) (*Classifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var overrides keywordOverrideFile
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, err
	}

	rules := make([]rule, len(defaultRules))
	copy(rules, defaultRules)
	for i, r := range rules {
		if kw, ok := overrides[string(r.kind)]; ok {
			rules[i].keywords = kw
		}
	}
	slog.Info("classifier keyword overrides loaded", slog.String("path", path))
	return &Classifier{rules: rules}, nil
}

// Classify applies the fixed-precedence rule table to message. The first
// matching tier wins; the order_id/tracking_number regexes are checked
// inside the "order" tier regardless of keyword matches so that a bare
// order or tracking number still routes correctly. category/product_id
// are extracted independently of which tier wins, per §4.6's documented
// entity set.
func (c *Classifier) Classify(message string) domain.IntentDecision {
	normalized := textx.NormalizeMessage(message)
	lower := strings.ToLower(normalized)
	entities := map[string]any{}

	if orderID := orderIDPattern.FindString(normalized); orderID != "" {
		entities["order_id"] = strings.TrimPrefix(orderID, "#")
	}
	if tracking := trackingPattern.FindString(normalized); tracking != "" {
		entities["tracking_number"] = tracking
	}
	if productID := productIDPattern.FindString(normalized); productID != "" {
		entities["product_id"] = strings.ToUpper(productID)
	}
	if category := matchCategory(lower); category != "" {
		entities["category"] = category
	}

	for _, r := range c.rules {
		matched := matchKeywords(lower, r.keywords)
		if r.kind == domain.HandlerOrder && !matched {
			if _, ok := entities["order_id"]; ok {
				matched = true
			}
			if _, ok := entities["tracking_number"]; ok {
				matched = true
			}
		}
		if !matched {
			continue
		}
		return domain.IntentDecision{
			Kind:              r.kind,
			Confidence:        strongConfidence,
			MatchedKeywords:   matchedKeywords(lower, r.keywords),
			ExtractedEntities: entities,
		}
	}

	return domain.IntentDecision{
		Kind:              domain.HandlerGeneral,
		Confidence:        fallbackConfidence,
		ExtractedEntities: entities,
	}
}

func matchKeywords(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func matchedKeywords(lower string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

func matchCategory(lower string) string {
	for _, ck := range categoryKeywords {
		if matchKeywords(lower, ck.keywords) {
			return ck.category
		}
	}
	return ""
}

var _ domain.Classifier = (*Classifier)(nil)

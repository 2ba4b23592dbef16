// Package guidance selects localized guidance and display labels for risk levels.
//
// Every lookup goes through two levels: the requested locale first, then the
// default locale. The default locale must define guidance for every risk
// level, which New enforces when the bundle is loaded.
package guidance

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/callguard/internal/common"
	"github.com/Veraticus/callguard/internal/model"
)

//go:embed locales.yaml
var embeddedBundle []byte

// DefaultLocale is used when a bundle does not name one.
const DefaultLocale = "en"

// Tip is one safety tip shown alongside guidance.
type Tip struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
}

// Contact is an emergency helpline.
type Contact struct {
	Name   string `yaml:"name" json:"name"`
	Number string `yaml:"number" json:"number"`
}

type localeTable struct {
	Labels   map[string]string            `yaml:"labels"`
	Guidance map[model.RiskLevel][]string `yaml:"guidance"`
	Name     string                       `yaml:"name"`
	Tips     []Tip                        `yaml:"tips"`
}

type bundle struct {
	Locales  map[string]*localeTable `yaml:"locales"`
	Default  string                  `yaml:"default"`
	Contacts []Contact               `yaml:"emergency_contacts"`
}

// Generator answers guidance and label lookups. It is immutable after New
// and safe for concurrent use.
type Generator struct {
	locales       map[string]*localeTable
	defaultLocale string
	contacts      []Contact
}

// Option configures a Generator.
type Option func(*options)

type options struct {
	overlays [][]byte
	paths    []string
}

// WithOverlayFile merges a user-supplied YAML bundle over the embedded one.
// An empty path is ignored.
func WithOverlayFile(path string) Option {
	return func(o *options) {
		if strings.TrimSpace(path) != "" {
			o.paths = append(o.paths, path)
		}
	}
}

// WithOverlay merges raw YAML over the embedded bundle.
func WithOverlay(data []byte) Option {
	return func(o *options) {
		o.overlays = append(o.overlays, data)
	}
}

// New loads the embedded locale bundle and any overlays.
func New(opts ...Option) (*Generator, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	base, err := parseBundle(embeddedBundle)
	if err != nil {
		return nil, fmt.Errorf("embedded locales: %w", err)
	}

	for _, path := range o.paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read locale overlay %s: %w", path, err)
		}
		o.overlays = append(o.overlays, data)
	}
	for i, data := range o.overlays {
		overlay, err := parseBundle(data)
		if err != nil {
			return nil, fmt.Errorf("locale overlay %d: %w", i, err)
		}
		base.merge(overlay)
	}

	g := &Generator{
		locales:       base.Locales,
		defaultLocale: base.Default,
		contacts:      base.Contacts,
	}
	if g.defaultLocale == "" {
		g.defaultLocale = DefaultLocale
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// MustDefault returns a Generator over the embedded bundle and panics if the
// bundle is broken.
func MustDefault() *Generator {
	g, err := New()
	if err != nil {
		panic(err)
	}
	return g
}

func parseBundle(data []byte) (*bundle, error) {
	var b bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}
	if b.Locales == nil {
		b.Locales = make(map[string]*localeTable)
	}
	return &b, nil
}

// merge overlays o onto b. Overlay entries replace per level and per key.
func (b *bundle) merge(o *bundle) {
	if o.Default != "" {
		b.Default = o.Default
	}
	if len(o.Contacts) > 0 {
		b.Contacts = o.Contacts
	}
	for code, src := range o.Locales {
		if src == nil {
			continue
		}
		dst, ok := b.Locales[code]
		if !ok || dst == nil {
			dst = &localeTable{}
			b.Locales[code] = dst
		}
		if src.Name != "" {
			dst.Name = src.Name
		}
		if len(src.Tips) > 0 {
			dst.Tips = src.Tips
		}
		for k, v := range src.Labels {
			if dst.Labels == nil {
				dst.Labels = make(map[string]string)
			}
			dst.Labels[k] = v
		}
		for level, lines := range src.Guidance {
			if dst.Guidance == nil {
				dst.Guidance = make(map[model.RiskLevel][]string)
			}
			dst.Guidance[level] = lines
		}
	}
}

func (g *Generator) validate() error {
	def, ok := g.locales[g.defaultLocale]
	if !ok || def == nil {
		return fmt.Errorf("%w: default locale %q is not defined", common.ErrInvalidConfig, g.defaultLocale)
	}
	for _, level := range model.RiskLevels() {
		if len(nonEmpty(def.Guidance[level])) == 0 {
			return fmt.Errorf("%w: default locale %q has no %s guidance", common.ErrInvalidConfig, g.defaultLocale, level)
		}
	}
	for code, table := range g.locales {
		if table == nil {
			continue
		}
		for level := range table.Guidance {
			if _, err := model.ParseRiskLevel(string(level)); err != nil {
				return fmt.Errorf("%w: locale %q: %v", common.ErrInvalidConfig, code, err)
			}
		}
	}
	return nil
}

// Guidance returns the ordered guidance for level in locale, falling back to
// the default locale. The result is a fresh slice.
func (g *Generator) Guidance(level model.RiskLevel, locale string) []string {
	if lines := g.lookupGuidance(normalize(locale), level); len(lines) > 0 {
		return lines
	}
	return g.lookupGuidance(g.defaultLocale, level)
}

func (g *Generator) lookupGuidance(locale string, level model.RiskLevel) []string {
	table, ok := g.locales[locale]
	if !ok || table == nil {
		return nil
	}
	return nonEmpty(table.Guidance[level])
}

// Label returns the display string for key, falling back to the default
// locale and finally to the key itself.
func (g *Generator) Label(locale, key string) string {
	if table, ok := g.locales[normalize(locale)]; ok && table != nil {
		if v := table.Labels[key]; v != "" {
			return v
		}
	}
	if table, ok := g.locales[g.defaultLocale]; ok && table != nil {
		if v := table.Labels[key]; v != "" {
			return v
		}
	}
	return key
}

// RiskLabel returns the banner text for a risk level.
func (g *Generator) RiskLabel(level model.RiskLevel, locale string) string {
	return g.Label(locale, "risk."+string(level))
}

// IndicatorLabel returns the display name of an indicator.
func (g *Generator) IndicatorLabel(def model.IndicatorDefinition, locale string) string {
	return g.Label(locale, def.LabelKey())
}

// IndicatorDescription returns the explanation of an indicator.
func (g *Generator) IndicatorDescription(def model.IndicatorDefinition, locale string) string {
	return g.Label(locale, def.DescriptionKey())
}

// LanguageName returns the native name of a locale, or the code itself.
func (g *Generator) LanguageName(locale string) string {
	if table, ok := g.locales[normalize(locale)]; ok && table != nil && table.Name != "" {
		return table.Name
	}
	return locale
}

// Locales returns the known locale codes, sorted.
func (g *Generator) Locales() []string {
	codes := make([]string, 0, len(g.locales))
	for code := range g.locales {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// DefaultLocale returns the locale used for fallback.
func (g *Generator) DefaultLocale() string {
	return g.defaultLocale
}

// Tips returns the safety tips for locale.
func (g *Generator) Tips(locale string) []Tip {
	if table, ok := g.locales[normalize(locale)]; ok && table != nil && len(table.Tips) > 0 {
		return append([]Tip(nil), table.Tips...)
	}
	if table, ok := g.locales[g.defaultLocale]; ok && table != nil {
		return append([]Tip(nil), table.Tips...)
	}
	return nil
}

// EmergencyContacts returns the configured helplines.
func (g *Generator) EmergencyContacts() []Contact {
	return append([]Contact(nil), g.contacts...)
}

func normalize(locale string) string {
	return strings.ToLower(strings.TrimSpace(locale))
}

func nonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

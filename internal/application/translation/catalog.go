package translation

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

//go:embed resources/*.json
var resources embed.FS

// ErrMissingKey is returned when a key exists in neither the requested nor the
// default language.
var ErrMissingKey = errors.New("translation key not found")

// Bundle maps a BCP 47 language tag to its key/template pairs.
type Bundle map[string]map[string]string

// Provider resolves message keys for a language, substituting {{NAME}}
// placeholders from params. Keys ending in "_html" get HTML-escaped values.
type Provider interface {
	TranslateKeys(lang language.Tag, keys []string, params map[string]string) (map[string]string, error)
}

// Catalog is an immutable Provider built from one or more bundles.
type Catalog struct {
	fallback language.Tag
	tags     []language.Tag
	matcher  language.Matcher
	texts    map[string]map[string]string
}

// Embedded returns the bundle compiled into the binary.
func Embedded() (Bundle, error) {
	entries, err := fs.ReadDir(resources, "resources")
	if err != nil {
		return nil, fmt.Errorf("read embedded translations: %w", err)
	}
	b := make(Bundle, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := resources.ReadFile("resources/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		var texts map[string]string
		if err := json.Unmarshal(data, &texts); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Name(), err)
		}
		b[strings.TrimSuffix(e.Name(), ".json")] = texts
	}
	return b, nil
}

// ParseBundle decodes a bundle of the form {"en": {"key": "text"}}.
func ParseBundle(r io.Reader) (Bundle, error) {
	var b Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode translation bundle: %w", err)
	}
	return b, nil
}

// NewCatalog merges bundles in order, later bundles overriding individual keys
// of earlier ones. defaultLang must be present after merging.
func NewCatalog(defaultLang string, bundles ...Bundle) (*Catalog, error) {
	fallback, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("parse default language %q: %w", defaultLang, err)
	}

	texts := make(map[string]map[string]string)
	for _, b := range bundles {
		for lang, kv := range b {
			tag, err := language.Parse(lang)
			if err != nil {
				return nil, fmt.Errorf("parse language %q: %w", lang, err)
			}
			key := tag.String()
			if texts[key] == nil {
				texts[key] = make(map[string]string, len(kv))
			}
			for k, v := range kv {
				texts[key][k] = v
			}
		}
	}
	if _, ok := texts[fallback.String()]; !ok {
		return nil, fmt.Errorf("no translations for default language %q", fallback)
	}

	tags := []language.Tag{fallback}
	others := make([]string, 0, len(texts))
	for lang := range texts {
		if lang != fallback.String() {
			others = append(others, lang)
		}
	}
	sort.Strings(others)
	for _, lang := range others {
		tags = append(tags, language.MustParse(lang))
	}

	return &Catalog{
		fallback: fallback,
		tags:     tags,
		matcher:  language.NewMatcher(tags),
		texts:    texts,
	}, nil
}

// Default returns the fallback language.
func (c *Catalog) Default() language.Tag { return c.fallback }

// Supported returns the available languages, default first.
func (c *Catalog) Supported() []language.Tag {
	return append([]language.Tag(nil), c.tags...)
}

// Match picks the best supported language for an Accept-Language style value
// ("fi", "sv-FI,sv;q=0.9,en;q=0.5"). Unparseable or empty input yields the default.
func (c *Catalog) Match(accept string) language.Tag {
	if strings.TrimSpace(accept) == "" {
		return c.fallback
	}
	prefs, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(prefs) == 0 {
		slog.Debug("unparseable language preference", "value", accept, "err", err)
		return c.fallback
	}
	return c.resolve(prefs...)
}

func (c *Catalog) resolve(prefs ...language.Tag) language.Tag {
	_, idx, conf := c.matcher.Match(prefs...)
	if conf == language.No {
		return c.fallback
	}
	return c.tags[idx]
}

func (c *Catalog) TranslateKeys(lang language.Tag, keys []string, params map[string]string) (map[string]string, error) {
	tag := c.resolve(lang)
	primary := c.texts[tag.String()]
	fallback := c.texts[c.fallback.String()]

	out := make(map[string]string, len(keys))
	for _, key := range keys {
		tmpl, ok := primary[key]
		if !ok {
			if tmpl, ok = fallback[key]; !ok {
				return nil, fmt.Errorf("%q (%s): %w", key, tag, ErrMissingKey)
			}
		}
		out[key] = interpolate(tmpl, params, strings.HasSuffix(key, "_html"))
	}
	return out, nil
}

func interpolate(tmpl string, params map[string]string, escape bool) string {
	if len(params) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, 2*len(params))
	for name, value := range params {
		if escape {
			value = html.EscapeString(value)
		}
		pairs = append(pairs, "{{"+name+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

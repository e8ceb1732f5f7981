package translation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func newEmbeddedCatalog(t *testing.T) *Catalog {
	t.Helper()
	b, err := Embedded()
	require.NoError(t, err)
	c, err := NewCatalog("en", b)
	require.NoError(t, err)
	return c
}

func TestEmbedded_ShipsDefaultLanguages(t *testing.T) {
	b, err := Embedded()
	require.NoError(t, err)
	for _, lang := range []string{"en", "fi", "sv"} {
		assert.Contains(t, b, lang)
		assert.NotEmpty(t, b[lang]["auth_code_subject"])
	}
}

func TestTranslateKeys_Interpolates(t *testing.T) {
	c := newEmbeddedCatalog(t)

	out, err := c.TranslateKeys(language.English, []string{"auth_code_body_text", "auth_code_body_html"}, map[string]string{"CODE": "0427"})
	require.NoError(t, err)
	assert.Contains(t, out["auth_code_body_text"], "0427")
	assert.Contains(t, out["auth_code_body_html"], "<b>0427</b>")
	assert.NotContains(t, out["auth_code_body_text"], "{{CODE}}")
}

func TestTranslateKeys_EscapesOnlyHTMLKeys(t *testing.T) {
	c, err := NewCatalog("en", Bundle{"en": {
		"greeting_text": "Hi {{NAME}}",
		"greeting_html": "<p>Hi {{NAME}}</p>",
	}})
	require.NoError(t, err)

	out, err := c.TranslateKeys(language.English, []string{"greeting_text", "greeting_html"}, map[string]string{"NAME": "<b>x</b>"})
	require.NoError(t, err)
	assert.Equal(t, "Hi <b>x</b>", out["greeting_text"])
	assert.Equal(t, "<p>Hi &lt;b&gt;x&lt;/b&gt;</p>", out["greeting_html"])
}

func TestTranslateKeys_SelectsLanguage(t *testing.T) {
	c := newEmbeddedCatalog(t)

	out, err := c.TranslateKeys(language.Finnish, []string{"auth_code_subject"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Kirjautumiskoodisi", out["auth_code_subject"])
}

func TestTranslateKeys_UnsupportedLanguageFallsBack(t *testing.T) {
	c := newEmbeddedCatalog(t)

	out, err := c.TranslateKeys(language.Japanese, []string{"auth_code_subject"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Your sign-in code", out["auth_code_subject"])
}

func TestTranslateKeys_MissingKeyFallsBackToDefault(t *testing.T) {
	c, err := NewCatalog("en", Bundle{
		"en": {"a": "english a", "b": "english b"},
		"fi": {"a": "suomi a"},
	})
	require.NoError(t, err)

	out, err := c.TranslateKeys(language.Finnish, []string{"a", "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "suomi a", out["a"])
	assert.Equal(t, "english b", out["b"])

	_, err = c.TranslateKeys(language.Finnish, []string{"c"}, nil)
	assert.True(t, errors.Is(err, ErrMissingKey))
}

func TestNewCatalog_LaterBundlesOverride(t *testing.T) {
	b, err := Embedded()
	require.NoError(t, err)
	override, err := ParseBundle(strings.NewReader(`{"en": {"auth_code_subject": "Sign in to Example"}}`))
	require.NoError(t, err)

	c, err := NewCatalog("en", b, override)
	require.NoError(t, err)

	out, err := c.TranslateKeys(language.English, []string{"auth_code_subject", "auth_code_footer_text"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Sign in to Example", out["auth_code_subject"])
	assert.NotEmpty(t, out["auth_code_footer_text"], "keys absent from the override survive")
}

func TestNewCatalog_Errors(t *testing.T) {
	_, err := NewCatalog("en", Bundle{"fi": {"a": "b"}})
	assert.Error(t, err, "default language missing")

	_, err = NewCatalog("en", Bundle{"en": {"a": "b"}, "not a tag!": {"a": "b"}})
	assert.Error(t, err)

	_, err = ParseBundle(strings.NewReader(`{"en": ["x"]}`))
	assert.Error(t, err)
}

func TestMatch(t *testing.T) {
	c := newEmbeddedCatalog(t)

	assert.Equal(t, "en", c.Match("").String())
	assert.Equal(t, "en", c.Match(";;;garbage").String())
	assert.Equal(t, "fi", c.Match("fi").String())
	assert.Equal(t, "sv", c.Match("sv-FI,sv;q=0.9,en;q=0.5").String())
	assert.Equal(t, "en", c.Match("de-DE").String())
	assert.Equal(t, "en", c.Supported()[0].String())
}

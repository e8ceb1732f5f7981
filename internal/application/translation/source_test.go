package translation

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

type stubSource struct {
	body string
	err  error
}

func (s stubSource) Download(context.Context, string) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.body)), nil
}

func TestFetch_OverridesEmbedded(t *testing.T) {
	override, err := Fetch(context.Background(), stubSource{body: `{"en":{"auth_code_subject":"Sign in to Acme"}}`}, "i18n.json")
	require.NoError(t, err)
	base, err := Embedded()
	require.NoError(t, err)

	c, err := NewCatalog("en", base, override)
	require.NoError(t, err)
	out, err := c.TranslateKeys(language.English, []string{"auth_code_subject"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Sign in to Acme", out["auth_code_subject"])
}

func TestFetch_Errors(t *testing.T) {
	_, err := Fetch(context.Background(), stubSource{err: errors.New("denied")}, "i18n.json")
	assert.Error(t, err)

	_, err = Fetch(context.Background(), stubSource{body: "not json"}, "i18n.json")
	assert.Error(t, err)
}

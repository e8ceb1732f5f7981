package message

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-passwordless/internal/domain"
	"golang.org/x/text/language"
)

// Translation keys for the authentication code message.
const (
	KeySubject    = "auth_code_subject"
	KeyHeaderText = "auth_code_header_text"
	KeyBodyText   = "auth_code_body_text"
	KeyFooterText = "auth_code_footer_text"
	KeyHeaderHTML = "auth_code_header_html"
	KeyBodyHTML   = "auth_code_body_html"
	KeyFooterHTML = "auth_code_footer_html"
	KeySMSText    = "auth_code_sms_text"

	// ParamCode is the placeholder name the code is substituted for.
	ParamCode = "CODE"

	DefaultDispatchTimeout = 30 * time.Second
)

// Dispatcher delivers a rendered message over one channel.
type Dispatcher interface {
	Send(ctx context.Context, msg domain.Message) error
}

// Translator resolves message keys for a language.
type Translator interface {
	TranslateKeys(lang language.Tag, keys []string, params map[string]string) (map[string]string, error)
}

// Template lists the keys a channel's message is assembled from. Text and
// HTML parts are concatenated in order.
type Template struct {
	Subject string
	Text    []string
	HTML    []string
}

var (
	EmailTemplate = Template{
		Subject: KeySubject,
		Text:    []string{KeyHeaderText, KeyBodyText, KeyFooterText},
		HTML:    []string{KeyHeaderHTML, KeyBodyHTML, KeyFooterHTML},
	}
	SMSTemplate = Template{
		Text: []string{KeySMSText},
	}
)

func (t Template) keys() []string {
	keys := make([]string, 0, 1+len(t.Text)+len(t.HTML))
	if t.Subject != "" {
		keys = append(keys, t.Subject)
	}
	keys = append(keys, t.Text...)
	return append(keys, t.HTML...)
}

// Service renders and sends authentication codes.
type Service interface {
	SendAuthenticationCode(ctx context.Context, lang language.Tag, address, code string) error
}

type service struct {
	dispatcher Dispatcher
	translator Translator
	tmpl       Template
	timeout    time.Duration
}

func NewService(dispatcher Dispatcher, translator Translator, tmpl Template, timeout time.Duration) Service {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	return &service{dispatcher: dispatcher, translator: translator, tmpl: tmpl, timeout: timeout}
}

func (s *service) SendAuthenticationCode(ctx context.Context, lang language.Tag, address, code string) error {
	texts, err := s.translator.TranslateKeys(lang, s.tmpl.keys(), map[string]string{ParamCode: code})
	if err != nil {
		return fmt.Errorf("render authentication code message: %w", err)
	}

	msg := domain.Message{
		To:   address,
		Text: join(texts, s.tmpl.Text),
		HTML: join(texts, s.tmpl.HTML),
	}
	if s.tmpl.Subject != "" {
		msg.Subject = texts[s.tmpl.Subject]
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.dispatcher.Send(ctx, msg); err != nil {
		return fmt.Errorf("send authentication code to %q: %w", address, err)
	}
	slog.Info("authentication code sent", "to", address, "lang", lang.String())
	return nil
}

func join(texts map[string]string, keys []string) string {
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(texts[k])
	}
	return b.String()
}

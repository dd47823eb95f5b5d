package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// DefaultLanguage is used when nothing better can be negotiated
const DefaultLanguage = "en"

// languageOrder is the display order; the first entry is the matcher default
var languageOrder = []string{"en", "uk", "pl", "de", "es", "fr"}

type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

type localeFile struct {
	Name     string            `yaml:"name"`
	Flag     string            `yaml:"flag"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle holds every translation and negotiates between them
type Bundle struct {
	languages []Language
	messages  map[string]map[string]string
	printers  map[string]*message.Printer
	matcher   language.Matcher
}

// Load reads <code>.yaml for every supported language from fsys
func Load(fsys fs.FS) (*Bundle, error) {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	b := &Bundle{
		messages: make(map[string]map[string]string, len(languageOrder)),
		printers: make(map[string]*message.Printer, len(languageOrder)),
	}

	tags := make([]language.Tag, 0, len(languageOrder))
	for _, code := range languageOrder {
		data, err := fs.ReadFile(fsys, path.Join("locales", code+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("failed to read locale %s: %w", code, err)
		}

		var lf localeFile
		if err := yaml.Unmarshal(data, &lf); err != nil {
			return nil, fmt.Errorf("failed to parse locale %s: %w", code, err)
		}

		tag := language.MustParse(code)
		for key, msg := range lf.Messages {
			if err := builder.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("invalid message %s/%s: %w", code, key, err)
			}
		}

		tags = append(tags, tag)
		b.languages = append(b.languages, Language{Code: code, Name: lf.Name, Flag: lf.Flag})
		b.messages[code] = lf.Messages
	}

	for i, code := range languageOrder {
		b.printers[code] = message.NewPrinter(tags[i], message.Catalog(builder))
	}
	b.matcher = language.NewMatcher(tags)

	return b, nil
}

var defaultBundle = mustLoad()

func mustLoad() *Bundle {
	b, err := Load(localeFS)
	if err != nil {
		panic(err)
	}
	return b
}

// Supported returns the language codes in display order
func Supported() []string {
	out := make([]string, len(languageOrder))
	copy(out, languageOrder)
	return out
}

func IsSupported(code string) bool {
	for _, c := range languageOrder {
		if c == code {
			return true
		}
	}
	return false
}

func Languages() []Language { return defaultBundle.Languages() }

func T(lang, key string, args ...any) string { return defaultBundle.T(lang, key, args...) }

func Messages(lang string) map[string]string { return defaultBundle.Messages(lang) }

func Negotiate(acceptLanguage, preferred string) string {
	return defaultBundle.Negotiate(acceptLanguage, preferred)
}

func (b *Bundle) Languages() []Language {
	out := make([]Language, len(b.languages))
	copy(out, b.languages)
	return out
}

// T translates key into lang, falling back to English and then to the key itself
func (b *Bundle) T(lang, key string, args ...any) string {
	if !IsSupported(lang) {
		lang = DefaultLanguage
	}
	if _, ok := b.messages[lang][key]; !ok {
		if _, ok := b.messages[DefaultLanguage][key]; !ok {
			return key
		}
		lang = DefaultLanguage
	}
	return b.printers[lang].Sprintf(key, args...)
}

// Messages returns the full message table for lang with English filling the gaps
func (b *Bundle) Messages(lang string) map[string]string {
	if !IsSupported(lang) {
		lang = DefaultLanguage
	}
	out := make(map[string]string, len(b.messages[DefaultLanguage]))
	for k, v := range b.messages[DefaultLanguage] {
		out[k] = v
	}
	for k, v := range b.messages[lang] {
		out[k] = v
	}
	return out
}

// Negotiate picks the UI language. A saved preference wins over the
// Accept-Language header.
func (b *Bundle) Negotiate(acceptLanguage, preferred string) string {
	if IsSupported(preferred) {
		return preferred
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLanguage
	}

	_, index, confidence := b.matcher.Match(tags...)
	if confidence == language.No {
		return DefaultLanguage
	}
	return languageOrder[index]
}

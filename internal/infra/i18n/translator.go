package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// DefaultLanguage is used when a requested locale is not shipped.
const DefaultLanguage = "en"

// Translator resolves message keys for one language.
type Translator struct {
	lang         string
	translations map[string]string
}

// NewTranslator loads locales/<langCode>.yaml from fsys.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))

	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	t, err := newTranslatorFromBytes(data)
	if err != nil {
		return nil, err
	}
	t.lang = langCode
	return t, nil
}

// Load returns the embedded translator for langCode, falling back to
// DefaultLanguage when the locale is unknown.
func Load(langCode string) (*Translator, error) {
	t, err := NewTranslator(LocalesFS, langCode)
	if err == nil {
		return t, nil
	}
	if langCode == DefaultLanguage {
		return nil, err
	}
	return NewTranslator(LocalesFS, DefaultLanguage)
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	if translations == nil {
		translations = map[string]string{}
	}
	return &Translator{translations: translations}, nil
}

// T translates key, formatting args into the message. Unknown keys are
// returned as-is.
func (t *Translator) T(key string, args ...interface{}) string {
	if t == nil {
		return key
	}
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// Language is the locale code the translator was loaded for.
func (t *Translator) Language() string {
	if t == nil {
		return ""
	}
	return t.lang
}

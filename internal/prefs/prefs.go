// Package prefs persists the reader's display settings (font, size and theme)
// and the last opened book.
package prefs

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Setting keys.
const (
	KeyFont  = "font"
	KeySize  = "size"
	KeyTheme = "theme"
)

// Setting values.
const (
	FontSans  = "Sans"
	FontSerif = "Serif"

	SizeNormal = "Normal"
	SizeBig    = "Big"

	ThemeLight  = "Light"
	ThemeMedium = "Medium"
	ThemeDark   = "Dark"
)

// ErrInvalidValue is returned for unknown keys or values.
var ErrInvalidValue = errors.New("invalid preference")

var allowed = map[string][]string{
	KeyFont:  {FontSans, FontSerif},
	KeySize:  {SizeNormal, SizeBig},
	KeyTheme: {ThemeLight, ThemeMedium, ThemeDark},
}

// Preferences are the reader's display settings.
type Preferences struct {
	Font  string `json:"font"`
	Size  string `json:"size"`
	Theme string `json:"theme"`
}

// Defaults returns the settings used before anything is stored.
func Defaults() Preferences {
	return Preferences{Font: FontSans, Size: SizeNormal, Theme: ThemeLight}
}

// Keys returns the setting keys in display order.
func Keys() []string {
	return []string{KeyFont, KeySize, KeyTheme}
}

// Values returns the accepted values for key.
func Values(key string) []string {
	return slices.Clone(allowed[key])
}

// Get returns the value of key.
func (p Preferences) Get(key string) (string, error) {
	switch key {
	case KeyFont:
		return p.Font, nil
	case KeySize:
		return p.Size, nil
	case KeyTheme:
		return p.Theme, nil
	}
	return "", fmt.Errorf("%w: unknown key %q", ErrInvalidValue, key)
}

// Normalize validates value for key and returns its canonical spelling.
// Matching is case-insensitive, so "dark" becomes "Dark".
func Normalize(key, value string) (string, error) {
	values, ok := allowed[key]
	if !ok {
		return "", fmt.Errorf("%w: unknown key %q", ErrInvalidValue, key)
	}
	for _, v := range values {
		if strings.EqualFold(v, strings.TrimSpace(value)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %s must be one of %s", ErrInvalidValue, key, strings.Join(values, ", "))
}

// Next returns the value that follows the current one for key, wrapping
// around. It is what the reader's toggle keys cycle through.
func (p Preferences) Next(key string) Preferences {
	cur, err := p.Get(key)
	if err != nil {
		return p
	}
	values := allowed[key]
	i := slices.Index(values, cur)
	next := values[(i+1)%len(values)]
	switch key {
	case KeyFont:
		p.Font = next
	case KeySize:
		p.Size = next
	case KeyTheme:
		p.Theme = next
	}
	return p
}

// Load returns the stored preferences, with defaults for anything unset or
// no longer valid.
func (d *DB) Load() (Preferences, error) {
	p := Defaults()
	for _, key := range Keys() {
		raw, err := d.setting(key)
		if err != nil {
			return p, fmt.Errorf("reading %s: %w", key, err)
		}
		if raw == "" {
			continue
		}
		v, err := Normalize(key, raw)
		if err != nil {
			continue
		}
		switch key {
		case KeyFont:
			p.Font = v
		case KeySize:
			p.Size = v
		case KeyTheme:
			p.Theme = v
		}
	}
	return p, nil
}

// Set validates and stores a single setting.
func (d *DB) Set(key, value string) (string, error) {
	v, err := Normalize(key, value)
	if err != nil {
		return "", err
	}
	if err := d.putSetting(key, v); err != nil {
		return "", fmt.Errorf("saving %s: %w", key, err)
	}
	return v, nil
}

// Save stores every setting of p.
func (d *DB) Save(p Preferences) error {
	for _, key := range Keys() {
		v, _ := p.Get(key)
		if _, err := d.Set(key, v); err != nil {
			return err
		}
	}
	return nil
}

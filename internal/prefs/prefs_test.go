package prefs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "nested", "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoad_Defaults(t *testing.T) {
	db := openTestDB(t)

	p, err := db.Load()
	require.NoError(t, err)
	assert.Equal(t, Preferences{Font: "Sans", Size: "Normal", Theme: "Light"}, p)
}

func TestSet_PersistsCanonicalValue(t *testing.T) {
	db := openTestDB(t)

	v, err := db.Set(KeyTheme, " dark ")
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, v)

	_, err = db.Set(KeyTheme, "Medium")
	require.NoError(t, err)
	_, err = db.Set(KeyFont, "serif")
	require.NoError(t, err)

	p, err := db.Load()
	require.NoError(t, err)
	assert.Equal(t, ThemeMedium, p.Theme)
	assert.Equal(t, FontSerif, p.Font)
	assert.Equal(t, SizeNormal, p.Size)
}

func TestSet_Invalid(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Set(KeyTheme, "Sepia")
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = db.Set("color", "Dark")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestLoad_IgnoresStaleValues(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.putSetting(KeySize, "Huge"))

	p, err := db.Load()
	require.NoError(t, err)
	assert.Equal(t, SizeNormal, p.Size)
}

func TestSave_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	want := Preferences{Font: FontSerif, Size: SizeBig, Theme: ThemeDark}
	require.NoError(t, db.Save(want))

	got, err := db.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNext_Cycles(t *testing.T) {
	p := Defaults()
	p = p.Next(KeyTheme)
	assert.Equal(t, ThemeMedium, p.Theme)
	p = p.Next(KeyTheme)
	assert.Equal(t, ThemeDark, p.Theme)
	p = p.Next(KeyTheme)
	assert.Equal(t, ThemeLight, p.Theme)

	assert.Equal(t, FontSerif, Defaults().Next(KeyFont).Font)
	assert.Equal(t, SizeBig, Defaults().Next(KeySize).Size)
	assert.Equal(t, Defaults(), Defaults().Next("bogus"))
}

func TestGet(t *testing.T) {
	v, err := Defaults().Get(KeyFont)
	require.NoError(t, err)
	assert.Equal(t, FontSans, v)

	_, err = Defaults().Get("nope")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestBooks(t *testing.T) {
	db := openTestDB(t)

	_, ok, err := db.LastBook()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.RememberBook("https://example.com/a", "https://example.com/a/1"))
	require.NoError(t, db.RememberBook("https://example.com/a", "https://example.com/a/2"))

	b, ok, err := db.LastBook()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/a", b.URL)
	assert.Equal(t, "https://example.com/a/2", b.Current)
}

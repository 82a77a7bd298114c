// Package lang provides localized user-facing strings from embedded YAML
// language packs. Guilds choose a language via the "lang" guild setting;
// missing keys and unsupported languages fall back to English.
package lang

import (
	"embed"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

//go:embed packs/*.yml
var packFS embed.FS

// DefaultLang is the fallback language pack.
const DefaultLang = "en"

// GuildLangLookup resolves the language code configured for a guild.
type GuildLangLookup func(guild string) string

// Store holds the parsed language packs.
type Store struct {
	packs  map[string]map[string]string
	lookup GuildLangLookup
	logger zerolog.Logger
}

// Load parses all embedded language packs. lookup may be nil, in which case
// every guild gets the default pack.
func Load(lookup GuildLangLookup, logger zerolog.Logger) (*Store, error) {
	entries, err := packFS.ReadDir("packs")
	if err != nil {
		return nil, fmt.Errorf("reading language packs: %w", err)
	}

	packs := make(map[string]map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		code := name[:len(name)-len(".yml")]

		raw, err := packFS.ReadFile("packs/" + name)
		if err != nil {
			return nil, fmt.Errorf("reading pack %s: %w", name, err)
		}

		strings := make(map[string]string)
		if err := yaml.Unmarshal(raw, &strings); err != nil {
			return nil, fmt.Errorf("parsing pack %s: %w", name, err)
		}
		packs[code] = strings
	}

	if _, ok := packs[DefaultLang]; !ok {
		return nil, fmt.Errorf("default language pack %q missing", DefaultLang)
	}

	return &Store{
		packs:  packs,
		lookup: lookup,
		logger: logger.With().Str("component", "lang").Logger(),
	}, nil
}

// Supported reports whether a language pack exists for the code.
func (s *Store) Supported(code string) bool {
	_, ok := s.packs[code]
	return ok
}

// Get returns the template string for a key in the guild's language. Unknown
// keys come back as "[[key]]" so broken lookups are visible rather than
// silent.
func (s *Store) Get(key, guild string) string {
	code := DefaultLang
	if s.lookup != nil {
		if v := s.lookup(guild); v != "" && s.Supported(v) {
			code = v
		}
	}

	if v, ok := s.packs[code][key]; ok {
		return v
	}
	// Fall back to English for keys a translation hasn't covered yet.
	if v, ok := s.packs[DefaultLang][key]; ok {
		return v
	}

	s.logger.Warn().Str("key", key).Str("lang", code).Msg("missing language string")
	return "[[" + key + "]]"
}

// Getf formats the template for a key with fmt verbs.
func (s *Store) Getf(key, guild string, args ...any) string {
	return fmt.Sprintf(s.Get(key, guild), args...)
}

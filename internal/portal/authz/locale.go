package authz

import (
	"fmt"
	"net/http"
	"path"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// LocaleCookie overrides Accept-Language when it names a supported locale.
const LocaleCookie = "NEXT_LOCALE"

// unlocalized paths are never given a locale prefix.
var unlocalized = []string{"/api", "/swagger", "/metrics", "/livez", "/readyz", "/_next", "/static"}

// Locales resolves the locale segment at the start of page paths.
type Locales struct {
	supported []string
	def       string
	matcher   language.Matcher
}

// NewLocales validates supported and def. def must be one of supported.
func NewLocales(supported []string, def string) (*Locales, error) {
	if len(supported) == 0 {
		return nil, fmt.Errorf("authz: no locales configured")
	}

	tags := make([]language.Tag, 0, len(supported))
	clean := make([]string, 0, len(supported))
	for _, s := range supported {
		s = strings.TrimSpace(s)
		tag, err := language.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("authz: invalid locale %q: %w", s, err)
		}
		tags = append(tags, tag)
		clean = append(clean, s)
	}
	if !slices.Contains(clean, def) {
		return nil, fmt.Errorf("authz: default locale %q is not in %v", def, clean)
	}

	return &Locales{
		supported: clean,
		def:       def,
		matcher:   language.NewMatcher(tags),
	}, nil
}

func (l *Locales) Default() string { return l.def }

func (l *Locales) Supported(locale string) bool {
	return slices.Contains(l.supported, locale)
}

// Excluded reports whether p is outside locale handling: API and system
// routes, and anything that looks like a file.
func (l *Locales) Excluded(p string) bool {
	for _, prefix := range unlocalized {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return path.Ext(p) != ""
}

// Strip splits a leading locale segment off p. It returns "" and p unchanged
// when p has no recognised locale.
func (l *Locales) Strip(p string) (locale, rest string) {
	trimmed := strings.TrimPrefix(p, "/")
	seg, after, found := strings.Cut(trimmed, "/")
	if !l.Supported(seg) {
		return "", p
	}
	if !found {
		return seg, "/"
	}
	return seg, "/" + after
}

// Negotiate picks a locale for r from the NEXT_LOCALE cookie, then
// Accept-Language, then the default.
func (l *Locales) Negotiate(r *http.Request) string {
	if c, err := r.Cookie(LocaleCookie); err == nil && l.Supported(c.Value) {
		return c.Value
	}

	if accept := r.Header.Get("Accept-Language"); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			_, idx, conf := l.matcher.Match(tags...)
			if conf != language.No {
				return l.supported[idx]
			}
		}
	}

	return l.def
}

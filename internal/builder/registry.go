package builder

import (
	"sort"
	"strings"

	"git.home.luguber.info/inful/texbuild/internal/errors"
)

// Builder names accepted by New.
const (
	NameBasic       = "basic"
	NameTraditional = "traditional"
)

var constructors = map[string]func(Settings) (Builder, error){
	NameBasic: func(s Settings) (Builder, error) {
		b, err := NewBasic(s)
		if err != nil {
			return nil, err
		}
		return b, nil
	},
	NameTraditional: func(s Settings) (Builder, error) {
		t, err := NewTraditional(s)
		if err != nil {
			return nil, err
		}
		return t, nil
	},
}

// Names lists the supported builder names.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Supported reports whether New accepts name.
func Supported(name string) bool {
	_, ok := constructors[normalizeName(name)]
	return ok
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// New constructs the named strategy. Unknown names fail before any work.
func New(name string, s Settings) (Builder, error) {
	ctor, ok := constructors[normalizeName(name)]
	if !ok {
		return nil, errors.UnsupportedBuilder(name).WithContext("supported", strings.Join(Names(), ", "))
	}
	return ctor(s)
}

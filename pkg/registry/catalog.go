package registry

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/obsidian-forge/hfo/pkg/herrors"
)

// catalogFile is the on-disk shape of a daemon catalog TOML document: a
// top-level array of [[daemon]] tables, one per Spec.
type catalogFile struct {
	Daemon []Spec `toml:"daemon"`
}

// LoadFile reads a TOML daemon catalog from path and registers every entry
// into r, in file order. Intended to be called once at startup after any
// built-in defaults have already been registered via Register, so a
// catalog file can override them by repeating a key.
func (r *Registry) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return herrors.Wrap(herrors.KindInternal, "read daemon catalog", err)
	}
	var doc catalogFile
	if _, err := toml.Decode(string(raw), &doc); err != nil {
		return herrors.Wrap(herrors.KindValidation, "parse daemon catalog", err)
	}
	for _, spec := range doc.Daemon {
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

package signature

import (
	"errors"
	"fmt"
	"io"
	"os"

	"sigmem/pattern"

	"gopkg.in/yaml.v3"
)

var (
	ErrNoSignatures  = errors.New("no signatures defined")
	ErrMissingName   = errors.New("signature has no name")
	ErrDuplicateName = errors.New("duplicate signature name")
	ErrInvalidFixup  = errors.New("invalid fixup")
)

// setFile is the YAML layout of a signature set:
//
//	signatures:
//	  - name: LocalPlayer
//	    pattern: "48 8B 05 ?? ?? ?? ??"
//	    fixups:
//	      - rel: {offset: 3, length: 7}
//	      - add: 0x10
//	      - deref: true
type setFile struct {
	Signatures []signatureSpec `yaml:"signatures"`
}

type signatureSpec struct {
	Name    string      `yaml:"name"`
	Pattern string      `yaml:"pattern"`
	Fixups  []fixupSpec `yaml:"fixups"`
}

type fixupSpec struct {
	Add   *int     `yaml:"add"`
	Rel   *relSpec `yaml:"rel"`
	Deref bool     `yaml:"deref"`
}

type relSpec struct {
	Offset int `yaml:"offset"`
	Length int `yaml:"length"`
}

// Load decodes a YAML signature set. Unknown fields are rejected.
func Load(r io.Reader) (Set, error) {
	var file setFile

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoSignatures
		}
		return nil, fmt.Errorf("failed to decode signature set: %w", err)
	}

	if len(file.Signatures) == 0 {
		return nil, ErrNoSignatures
	}

	set := make(Set, 0, len(file.Signatures))
	seen := make(map[string]bool, len(file.Signatures))

	for i, spec := range file.Signatures {
		if spec.Name == "" {
			return nil, fmt.Errorf("signature %d: %w", i, ErrMissingName)
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, spec.Name)
		}
		seen[spec.Name] = true

		p, err := pattern.Parse(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", spec.Name, err)
		}

		fixups := make([]Fixup, 0, len(spec.Fixups))
		for j, fs := range spec.Fixups {
			f, err := fs.fixup()
			if err != nil {
				return nil, fmt.Errorf("%s: fixup %d: %w", spec.Name, j, err)
			}
			fixups = append(fixups, f)
		}

		set = append(set, Signature{Name: spec.Name, Pattern: p, Fixups: fixups})
	}

	return set, nil
}

// LoadFile reads a signature set from a YAML file
func LoadFile(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	set, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

func (fs fixupSpec) fixup() (Fixup, error) {
	var out []Fixup
	if fs.Add != nil {
		out = append(out, Add(*fs.Add))
	}
	if fs.Rel != nil {
		out = append(out, Rel{Offset: fs.Rel.Offset, Length: fs.Rel.Length})
	}
	if fs.Deref {
		out = append(out, Deref{})
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%w: set exactly one of add, rel or deref", ErrInvalidFixup)
	}
	return out[0], nil
}

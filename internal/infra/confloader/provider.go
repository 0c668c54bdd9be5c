package confloader

import "errors"

var errNotSerializable = errors.New("confloader: map values are not byte-serializable")

// confMap adapts an in-memory map (CLI flag overrides, test
// fixtures) to koanf's Provider interface. koanf calls Read when no
// parser is given, which is the only way LoadMap uses it.
type confMap struct {
	values map[string]any
}

func (p confMap) Read() (map[string]any, error) {
	// Copy the top level so koanf's merging never mutates the
	// caller's map.
	out := make(map[string]any, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out, nil
}

func (p confMap) ReadBytes() ([]byte, error) {
	return nil, errNotSerializable
}

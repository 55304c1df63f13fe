package wire

import (
	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CanonicalEncOptions()
	m, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	encMode = m

	dopts := cbor.DecOptions{}
	dm, err := dopts.DecMode()
	if err != nil {
		panic(err)
	}
	decMode = dm
}

// Marshal encodes v using canonical CBOR, the wire format for every
// envelope and message type in this package (§6, §8 round-trip property).
func Marshal(v interface{}) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes b into v.
func Unmarshal(b []byte, v interface{}) error {
	return decMode.Unmarshal(b, v)
}

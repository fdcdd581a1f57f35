package codec

import (
	"bytes"

	"github.com/ajsrt/jsrt/cmn/cos"
	"github.com/tinylib/msgp/msgp"
)

// Marshal encodes a value tree (nested map[string]interface{},
// []interface{}, primitives, and the Ref extension types above) to
// msgpack bytes using msgp's generic, non-codegen path.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	w := msgp.NewWriter(&buf)
	if err := w.WriteIntf(v); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes msgpack bytes back into a value tree. Registered
// extension types decode to their concrete *XxxRef pointer; everything
// else decodes to Go's natural msgpack-equivalent type (map[string]interface{},
// []interface{}, string, int64, float64, bool, nil, []byte).
func Unmarshal(data []byte) (interface{}, error) {
	r := msgp.NewReader(bytes.NewReader(data))
	v, err := r.ReadIntf()
	if err != nil {
		return nil, &cos.ErrUnmarshalable{Reason: err.Error()}
	}
	return v, nil
}

package text

import (
	"encoding"
	"fmt"

	"github.com/netsampler/nfrelay/format"
)

type TextDriver struct {
}

func (d *TextDriver) Init() error {
	return nil
}

func (d *TextDriver) Format(data interface{}) ([]byte, []byte, error) {
	var key []byte
	if dataIf, ok := data.(interface{ Key() []byte }); ok {
		key = dataIf.Key()
	}
	switch datac := data.(type) {
	case fmt.Stringer:
		return key, []byte(datac.String()), nil
	case encoding.TextMarshaler:
		text, err := datac.MarshalText()
		return key, text, err
	}
	return key, nil, format.ErrNoSerializer
}

func init() {
	d := &TextDriver{}
	format.RegisterFormatDriver("text", d)
}

package debug

import (
	"fmt"
	"runtime/debug"

	"github.com/netsampler/nfrelay/utils"
)

// PanicDecoderWrapper converts a panic raised while relaying a message into an error.
func PanicDecoderWrapper(wrapped utils.DecoderFunc) utils.DecoderFunc {
	return func(msg interface{}) (err error) {
		defer func() {
			if pErr := recover(); pErr != nil {
				err = &PanicErrorMessage{Msg: msg, Inner: fmt.Sprint(pErr), Stacktrace: debug.Stack()}
			}
		}()
		err = wrapped(msg)
		return err
	}
}

package option

import (
	"github.com/oscore-edhoc/wire/pkg/protocol"
)

// NumberOSCORE is the CoAP option number of the OSCORE option.
const NumberOSCORE = 9

// ErrDuplicateOption indicates a CoAP message carries more than one OSCORE option.
var ErrDuplicateOption = protocol.NewError(protocol.KindMalformedInput, "option: repeated OSCORE option")

// CoapOption is a CoAP option as delivered by the transport layer. Value aliases the transport's
// receive buffer.
type CoapOption struct {
	Number uint16
	Value  []byte
}

// Find returns the value of the OSCORE option in opts.
func Find(opts []CoapOption) (value []byte, found bool, err error) {
	for _, o := range opts {
		if o.Number != NumberOSCORE {
			continue
		}
		if found {
			return nil, false, ErrDuplicateOption
		}
		value, found = o.Value, true
	}
	return value, found, nil
}

// Parse locates the OSCORE option in opts and decodes it. If opts contains no OSCORE option, found
// is false and err is nil.
func Parse(opts []CoapOption) (opt CompressedOption, found bool, err error) {
	value, found, err := Find(opts)
	if err != nil || !found {
		return CompressedOption{}, found, err
	}
	opt, err = Decode(value)
	if err != nil {
		return CompressedOption{}, true, err
	}
	return opt, true, nil
}

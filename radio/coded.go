package radio

import (
	"math"

	"github.com/dtnsim/dtnsim/connection"
	"github.com/dtnsim/dtnsim/kernel"
)

// NewCodedRadio returns a radio at constant FER for a given frame size
// and code rate; the BER it hands to the connection layer is the
// equivalent value that reproduces the same all-frames-ok probability
// for each message's size, grounded in
// DtnCodedRadio.compute_equivalent_BER.
func NewCodedRadio(k *kernel.Kernel, conns map[string]connection.Connection, rate, fer, frameSize, codeRate, jPerBit float64) *Basic {
	return newRateRadio(k, conns, rate, jPerBit, func(msg connection.Message) float64 {
		return equivalentBER(msg.NumBits(), fer, frameSize, codeRate)
	})
}

// equivalentBER computes the BER b such that (1-b)^numBits matches the
// probability that all frames needed to carry numBits bits (at
// codeRate, framed at frameSize) arrive error-free under fer.
func equivalentBER(numBits, fer, frameSize, codeRate float64) float64 {
	if numBits <= 0 {
		return 0
	}
	codedBits := numBits / codeRate
	frames := math.Ceil(codedBits / frameSize)
	probMsgOK := math.Pow(1-fer, frames)
	return 1 - math.Pow(probMsgOK, 1/numBits)
}

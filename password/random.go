package password

import (
	"crypto/rand"
	"math/big"
)

const (
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()-_=+[]{}<>?"

	// GeneratedLengthDefault is used when GenerateRandom is called with a
	// non-positive length.
	GeneratedLengthDefault = 16

	generatedLengthMin = 8
	generatedLengthMax = 128
)

// GenerateRandom returns a random password of the requested length that is
// guaranteed to satisfy the character-class policy: at least one character
// from each class is seeded before the remainder is drawn from the combined
// alphabet, then the whole buffer is shuffled with crypto/rand. Lengths are
// clamped to [8, 128]; non-positive lengths use the default of 16.
func GenerateRandom(length int) (string, error) {
	if length <= 0 {
		length = GeneratedLengthDefault
	}
	if length < generatedLengthMin {
		length = generatedLengthMin
	}
	if length > generatedLengthMax {
		length = generatedLengthMax
	}

	all := lowerChars + upperChars + digitChars + symbolChars
	buf := make([]byte, 0, length)

	for _, alphabet := range []string{lowerChars, upperChars, digitChars, symbolChars} {
		c, err := pickByte(alphabet)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	for len(buf) < length {
		c, err := pickByte(all)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	if err := shuffleBytes(buf); err != nil {
		return "", err
	}

	return string(buf), nil
}

func pickByte(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, err
	}
	return alphabet[n.Int64()], nil
}

// shuffleBytes is a Fisher-Yates shuffle driven by crypto/rand so the seeded
// class characters do not sit at predictable positions.
func shuffleBytes(buf []byte) error {
	for i := len(buf) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return err
		}
		j := n.Int64()
		buf[i], buf[j] = buf[j], buf[i]
	}
	return nil
}

package usecase

import (
	"crypto/rand"
	"io"
)

// codeAlphabet omits characters that are easy to misread: 0/O, 1/I/L.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeLength = 8

// generateActivationCode returns a code formatted as XXXX-XXXX.
func generateActivationCode() (string, error) {
	return generateActivationCodeFrom(rand.Reader)
}

// generateActivationCodeFrom draws uniformly by rejecting bytes above the
// largest multiple of the alphabet size.
func generateActivationCodeFrom(src io.Reader) (string, error) {
	const limit = 256 - 256%len(codeAlphabet)

	out := make([]byte, 0, codeLength)
	buf := make([]byte, codeLength*2)
	for len(out) < codeLength {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == codeLength {
				break
			}
		}
	}
	return string(out[:4]) + "-" + string(out[4:]), nil
}

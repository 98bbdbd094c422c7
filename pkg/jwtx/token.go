package jwtx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// segments in a compact JWS: header.payload.signature
const segments = 3

// parser only decodes segments. Signatures are checked by the issuer through
// the remote validation call, never locally.
var parser = jwt.NewParser()

// CheckFormat reports whether raw splits into exactly three non-empty
// dot-separated segments.
func CheckFormat(raw string) bool {
	parts := strings.Split(raw, ".")
	if len(parts) != segments {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// Decode parses the payload of raw without verifying the signature and
// normalizes it. Strings that fail CheckFormat are rejected with ErrMalformed
// before any decoding happens. The header is not read, so tokens with a
// missing or unfamiliar alg still decode.
func Decode(raw string) (Claims, error) {
	if !CheckFormat(raw) {
		return Claims{}, ErrMalformed
	}

	seg, err := parser.DecodeSegment(strings.Split(raw, ".")[1])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	payload := jwt.MapClaims{}
	dec := json.NewDecoder(bytes.NewReader(seg))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return Normalize(payload)
}

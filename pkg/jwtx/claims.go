package jwtx

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClockSkewBuffer is subtracted from "now" before comparing against exp, so a
// token stays usable for a short while past its nominal expiry.
const ClockSkewBuffer = 10 * time.Second

// Claim keys. The two upstream issuers disagree on the subject and display
// name keys; the rest are shared.
const (
	KeySubject   = "sub"
	KeyUserID    = "userId"
	KeyName      = "name"
	KeyUsername  = "username"
	KeyRole      = "role"
	KeyEmail     = "email"
	KeyIssuedAt  = "iat"
	KeyExpiresAt = "exp"
)

// Claims is the canonical claim set every session is built from, regardless
// of which issuer minted the token.
type Claims struct {
	SubjectID   string           `json:"subjectId"`
	DisplayName string           `json:"displayName"`
	Role        string           `json:"role"`
	Email       string           `json:"email,omitempty"`
	IssuedAt    *jwt.NumericDate `json:"issuedAt,omitempty"`
	ExpiresAt   *jwt.NumericDate `json:"expiresAt,omitempty"`
}

// Normalize builds Claims from a decoded payload. The subject comes from
// "sub" falling back to "userId", the display name from "name" falling back
// to "username". Empty strings count as missing. ErrInvalidClaim is returned
// when subject, display name or role is still missing afterwards, or when a
// present claim has the wrong type.
func Normalize(raw map[string]any) (Claims, error) {
	mc := jwt.MapClaims(raw)

	subject, err := firstString(mc, KeySubject, KeyUserID)
	if err != nil {
		return Claims{}, err
	}
	name, err := firstString(mc, KeyName, KeyUsername)
	if err != nil {
		return Claims{}, err
	}
	role, err := firstString(mc, KeyRole)
	if err != nil {
		return Claims{}, err
	}
	email, err := firstString(mc, KeyEmail)
	if err != nil {
		return Claims{}, err
	}

	iat, err := numericDate(mc, KeyIssuedAt)
	if err != nil {
		return Claims{}, err
	}
	exp, err := numericDate(mc, KeyExpiresAt)
	if err != nil {
		return Claims{}, err
	}

	switch {
	case subject == "":
		return Claims{}, fmt.Errorf("%w: missing %s/%s", ErrInvalidClaim, KeySubject, KeyUserID)
	case name == "":
		return Claims{}, fmt.Errorf("%w: missing %s/%s", ErrInvalidClaim, KeyName, KeyUsername)
	case role == "":
		return Claims{}, fmt.Errorf("%w: missing %s", ErrInvalidClaim, KeyRole)
	}

	return Claims{
		SubjectID:   subject,
		DisplayName: name,
		Role:        role,
		Email:       email,
		IssuedAt:    iat,
		ExpiresAt:   exp,
	}, nil
}

// IsExpired reports whether the claims are past their expiry, allowing for
// ClockSkewBuffer. Claims without exp never expire.
func IsExpired(c Claims, now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return IsExpiredAt(c.ExpiresAt.Unix(), now)
}

// IsExpiredAt is IsExpired for a present exp value in unix seconds. An
// explicit exp of 0 is long expired.
//
// Comparison is done in milliseconds: exp*1000 < now - buffer.
func IsExpiredAt(exp int64, now time.Time) bool {
	return exp*1000 < now.UnixMilli()-ClockSkewBuffer.Milliseconds()
}

// ExpiresAtUnix returns exp in unix seconds, or nil when absent.
func (c Claims) ExpiresAtUnix() *int64 {
	if c.ExpiresAt == nil {
		return nil
	}
	exp := c.ExpiresAt.Unix()
	return &exp
}

// numericDate reads a NumericDate claim. Unlike jwt.MapClaims it keeps a
// present zero value, so "exp": 0 is distinguishable from no exp.
func numericDate(mc jwt.MapClaims, key string) (*jwt.NumericDate, error) {
	v, ok := mc[key]
	if !ok || v == nil {
		return nil, nil
	}

	var secs float64
	switch t := v.(type) {
	case float64:
		secs = t
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidClaim, key, err)
		}
		secs = f
	case int:
		secs = float64(t)
	case int64:
		secs = float64(t)
	default:
		return nil, fmt.Errorf("%w: %s: unsupported type %T", ErrInvalidClaim, key, v)
	}

	whole, frac := math.Modf(secs)
	return jwt.NewNumericDate(time.Unix(int64(whole), int64(frac*1e9))), nil
}

// firstString returns the first non-empty value among keys. Numeric values
// are accepted because one issuer sends userId as a number.
func firstString(mc jwt.MapClaims, keys ...string) (string, error) {
	for _, key := range keys {
		v, ok := mc[key]
		if !ok || v == nil {
			continue
		}

		s, err := stringify(v)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrInvalidClaim, key, err)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s, nil
		}
	}
	return "", nil
}

func stringify(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	default:
		return "", fmt.Errorf("unsupported type %T", v)
	}
}

// Package codec converts numeric link identifiers to base-62 aliases and back.
package codec

import (
	"math"
	"strings"

	"github.com/pkg/errors"

	customerrors "github.com/axellelanca/shortlink/internal/errors"
)

// Alphabet is the symbol table: digits, then upper case, then lower case letters.
// The first symbol is the zero digit used for padding.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const base = uint64(len(Alphabet))

// MaxFixedLength is the widest fixed length whose range still fits in a uint64.
// 62^11 overflows, so a width of 11 or more covers the whole uint64 domain.
const MaxFixedLength = 11

// index maps a byte to its alphabet position, -1 when outside the alphabet.
var index = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		t[Alphabet[i]] = int8(i)
	}
	return t
}()

// Codec encodes uint64 values as base-62 strings. The zero value is a
// variable-length codec.
type Codec struct {
	length int
	max    uint64
}

// New returns a codec. A fixedLength of 0 selects variable-length mode;
// otherwise aliases are left-padded to exactly fixedLength symbols.
func New(fixedLength int) (*Codec, error) {
	if fixedLength < 0 {
		return nil, errors.Wrapf(customerrors.ErrConfiguration, "fixed length must be non-negative, got %d", fixedLength)
	}
	return &Codec{length: fixedLength, max: maxValue(fixedLength)}, nil
}

// Variable returns a variable-length codec.
func Variable() *Codec {
	return &Codec{max: math.MaxUint64}
}

// FixedLength reports the configured width, 0 in variable-length mode.
func (c *Codec) FixedLength() int {
	return c.length
}

// Max returns the largest value Encode accepts.
func (c *Codec) Max() uint64 {
	if c.length == 0 {
		return math.MaxUint64
	}
	return c.max
}

// Encode returns the alias for id.
func (c *Codec) Encode(id uint64) (string, error) {
	if c.length > 0 && id > c.max {
		return "", errors.Wrapf(customerrors.ErrOutOfRange, "%d exceeds %d for fixed length %d", id, c.max, c.length)
	}

	var buf [MaxFixedLength + 1]byte
	i := len(buf)
	for {
		i--
		buf[i] = Alphabet[id%base]
		id /= base
		if id == 0 {
			break
		}
	}
	digits := len(buf) - i

	if c.length > digits {
		return strings.Repeat(Alphabet[:1], c.length-digits) + string(buf[i:]), nil
	}
	return string(buf[i:]), nil
}

// Decode returns the id encoded by alias.
func (c *Codec) Decode(alias string) (uint64, error) {
	if strings.TrimSpace(alias) == "" {
		return 0, errors.Wrap(customerrors.ErrInvalidInput, "alias is empty")
	}
	if c.length > 0 && len(alias) > c.length {
		return 0, errors.Wrapf(customerrors.ErrInvalidInput, "alias %q is longer than %d", alias, c.length)
	}

	var n uint64
	for i := 0; i < len(alias); i++ {
		d := index[alias[i]]
		if d < 0 {
			return 0, errors.Wrapf(customerrors.ErrInvalidInput, "invalid character %q in alias", alias[i])
		}
		if n > (math.MaxUint64-uint64(d))/base {
			return 0, errors.Wrapf(customerrors.ErrInvalidInput, "alias %q overflows", alias)
		}
		n = n*base + uint64(d)
	}
	return n, nil
}

// maxValue returns 62^length - 1, saturating at MaxUint64.
func maxValue(length int) uint64 {
	if length == 0 || length >= MaxFixedLength {
		return math.MaxUint64
	}
	m := uint64(1)
	for i := 0; i < length; i++ {
		m *= base
	}
	return m - 1
}

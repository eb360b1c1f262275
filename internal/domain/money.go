package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Money is an amount in cents. Bet stakes and settlements never use floats.
type Money int64

var moneyPrinter = message.NewPrinter(language.AmericanEnglish)

// Dollars converts whole dollars to Money.
func Dollars(d int64) Money { return Money(d * 100) }

// FromFloat converts a dollar amount to Money, rounding to the nearest cent.
func FromFloat(d float64) Money { return Money(math.Round(d * 100)) }

// Times multiplies the amount by an integer factor.
func (m Money) Times(n int64) Money { return m * Money(n) }

// Float returns the amount in dollars.
func (m Money) Float() float64 { return float64(m) / 100 }

// String renders the amount as "$1,234.50" or "-$5.00".
func (m Money) String() string {
	c := int64(m)
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return sign + moneyPrinter.Sprintf("$%d", c/100) + fmt.Sprintf(".%02d", c%100)
}

// MarshalJSON encodes the amount as a dollar number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(m.Float(), 'f', 2, 64)), nil
}

// UnmarshalJSON accepts a dollar number.
func (m *Money) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: money must be a number: %v", ErrInvalidInput, err)
	}
	*m = FromFloat(f)
	return nil
}

// UnmarshalYAML accepts a dollar number.
func (m *Money) UnmarshalYAML(value *yaml.Node) error {
	var f float64
	if err := value.Decode(&f); err != nil {
		return fmt.Errorf("%w: money must be a number: %v", ErrInvalidInput, err)
	}
	*m = FromFloat(f)
	return nil
}

// Split divides total into n integer shares by largest remainder: every share
// gets total/n and the remainder goes one unit at a time to the first shares.
// Callers order recipients (tee order) so the extra units land deterministically.
func Split(total int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	sign := int64(1)
	if total < 0 {
		sign = -1
		total = -total
	}
	q, r := total/int64(n), total%int64(n)
	shares := make([]int64, n)
	for i := range shares {
		shares[i] = q
		if int64(i) < r {
			shares[i]++
		}
		shares[i] *= sign
	}
	return shares
}

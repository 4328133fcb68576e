// Package model holds the subscription domain types.
package model

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// TokenDecimals is the number of decimals of the payment token's base unit.
const TokenDecimals = 18

// ErrInvalidDuration is returned when a duration is not one of the offered plans.
var ErrInvalidDuration = errors.New("duration must be one of 30, 90 or 365 days")

// Duration is a subscription length in days.
type Duration int

// Offered subscription lengths.
const (
	Duration30  Duration = 30
	Duration90  Duration = 90
	Duration365 Duration = 365
)

// OfferedDurations lists the durations presented to the user, in display order.
var OfferedDurations = []Duration{Duration30, Duration90, Duration365}

// Days returns the duration as a plain day count.
func (d Duration) Days() int64 {
	return int64(d)
}

// Valid reports whether d is one of the offered durations.
func (d Duration) Valid() bool {
	for _, o := range OfferedDurations {
		if d == o {
			return true
		}
	}
	return false
}

// String returns a label such as "90 days".
func (d Duration) String() string {
	return fmt.Sprintf("%d days", int(d))
}

// ParseDuration parses a day count ("90", " 365 ") into an offered Duration.
func ParseDuration(s string) (Duration, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, ErrInvalidDuration)
	}
	d := Duration(n)
	if !d.Valid() {
		return 0, fmt.Errorf("duration %d: %w", n, ErrInvalidDuration)
	}
	return d, nil
}

// DepositAmount returns the token amount, in base units, that must be approved
// for a subscription of d days: d * 10^18.
func DepositAmount(d Duration) *big.Int {
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(TokenDecimals), nil)
	return unit.Mul(unit, big.NewInt(d.Days()))
}

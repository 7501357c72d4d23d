package render

import (
	"strconv"
	"strings"
)

// Placeholder shown for absent optional values
const Placeholder = "N/A"

// FormatPercent renders v with two-decimal half-up rounding, e.g. 12.345
// becomes "12.35". Rounding happens on the shortest decimal representation of
// the value, so it matches what a user sees rather than the binary float.
func FormatPercent(v float64) string {
	return roundDecimalHalfUp(strconv.FormatFloat(v, 'f', -1, 64), 2)
}

// FormatFloat renders v with two decimal places, half-up
func FormatFloat(v float64) string {
	return roundDecimalHalfUp(strconv.FormatFloat(v, 'f', -1, 64), 2)
}

// FormatOptFloat renders a possibly-absent float
func FormatOptFloat(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return FormatFloat(*v)
}

// roundDecimalHalfUp rounds the decimal string s to the given number of
// fractional places, half-up. s must be a plain 'f'-format number.
func roundDecimalHalfUp(s string, places int) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart = s[:dot]
		fracPart = s[dot+1:]
	}

	if len(fracPart) <= places {
		for len(fracPart) < places {
			fracPart += "0"
		}
		return sign(neg) + intPart + "." + fracPart
	}

	roundUp := fracPart[places] >= '5'
	fracPart = fracPart[:places]

	digits := []byte(intPart + fracPart)
	if roundUp {
		i := len(digits) - 1
		for i >= 0 {
			if digits[i] < '9' {
				digits[i]++
				break
			}
			digits[i] = '0'
			i--
		}
		if i < 0 {
			digits = append([]byte{'1'}, digits...)
		}
	}

	out := string(digits[:len(digits)-places]) + "." + string(digits[len(digits)-places:])
	return sign(neg) + out
}

func sign(neg bool) string {
	if neg {
		return "-"
	}
	return ""
}

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/harrylevesque/nutritrack/internal/models"
)

// validDate reports whether s is a real calendar date in YYYY-MM-DD form.
func validDate(s string) bool {
	_, err := time.Parse(models.DateLayout, s)
	return err == nil
}

func checkDate(field, s string) error {
	if !validDate(s) {
		return badRequest("%s must be a date in YYYY-MM-DD form", field)
	}
	return nil
}

// dateRange reads optional from/to query parameters.
func dateRange(r *http.Request) (from, to string, err error) {
	q := r.URL.Query()
	from, to = q.Get("from"), q.Get("to")
	if from != "" {
		if err := checkDate("from", from); err != nil {
			return "", "", err
		}
	}
	if to != "" {
		if err := checkDate("to", to); err != nil {
			return "", "", err
		}
	}
	if from != "" && to != "" && from > to {
		return "", "", badRequest("from must not be after to")
	}
	return from, to, nil
}

// queryInt reads an integer query parameter. Missing means def; values
// above max are clamped; values below min are rejected.
func queryInt(r *http.Request, name string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s must be an integer", name)
	}
	if v < min {
		return 0, badRequest("%s must be at least %d", name, min)
	}
	if max > 0 && v > max {
		v = max
	}
	return v, nil
}

// ValidGTIN reports whether code is a GTIN-8, -12, -13 or -14 with a
// correct check digit.
func ValidGTIN(code string) bool {
	switch len(code) {
	case 8, 12, 13, 14:
	default:
		return false
	}
	sum := 0
	// Weights alternate 3,1,3,... from the digit left of the check digit.
	for i := len(code) - 2; i >= 0; i-- {
		c := code[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if (len(code)-2-i)%2 == 0 {
			d *= 3
		}
		sum += d
	}
	last := code[len(code)-1]
	if last < '0' || last > '9' {
		return false
	}
	return (10-sum%10)%10 == int(last-'0')
}

package dateparse

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bizzlechizzle/datemine/internal/model"
)

// DateLayout is the storage layout of date_start/date_end
const DateLayout = "2006-01-02"

// FormatDisplay renders a human-readable date for the given precision
func FormatDisplay(start time.Time, end *time.Time, precision model.DatePrecision, decade bool) string {
	if decade {
		return fmt.Sprintf("%ds", start.Year())
	}
	s := displayOne(start, precision)
	if end != nil {
		return s + " to " + displayOne(*end, precision)
	}
	return s
}

func displayOne(t time.Time, precision model.DatePrecision) string {
	switch precision {
	case model.PrecisionExact:
		return t.Format("January 2, 2006")
	case model.PrecisionMonth:
		return t.Format("January 2006")
	case model.PrecisionYear:
		return strconv.Itoa(t.Year())
	default:
		return t.Format(DateLayout)
	}
}

// FormatEDTF renders an Extended Date/Time Format string
func FormatEDTF(start time.Time, end *time.Time, precision model.DatePrecision, decade bool) string {
	if decade {
		y := strconv.Itoa(start.Year())
		return y[:len(y)-1] + "X"
	}
	s := edtfOne(start, precision)
	if end != nil {
		return s + "/" + edtfOne(*end, precision)
	}
	return s
}

func edtfOne(t time.Time, precision model.DatePrecision) string {
	switch precision {
	case model.PrecisionMonth:
		return t.Format("2006-01")
	case model.PrecisionYear:
		return t.Format("2006")
	default:
		return t.Format(DateLayout)
	}
}

// SortKey returns the integer ordering key: YYYYMMDD for exact dates, the
// middle of the month for month precision and the middle of the year for year
// precision.
func SortKey(start time.Time, precision model.DatePrecision) int {
	y, m, d := start.Year(), int(start.Month()), start.Day()
	switch precision {
	case model.PrecisionExact:
		return y*10000 + m*100 + d
	case model.PrecisionMonth:
		return y*10000 + m*100 + 15
	case model.PrecisionYear:
		return y*10000 + 701
	default:
		return 0
	}
}

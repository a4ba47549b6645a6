package alerts

import (
	"regexp"
	"strconv"

	"backoffice-alerts/internal/models"
)

var tablePattern = regexp.MustCompile(`(?i)\btable\s*(?:#|no\.?|number)?\s*:?\s*(\d+)`)

// TableNumber returns the order's table, preferring the explicit field over
// free text such as "Table 5" or "table #5" in the details.
func TableNumber(o models.Order) (int, bool) {
	if o.TableNumber != nil && *o.TableNumber > 0 {
		return *o.TableNumber, true
	}
	m := tablePattern.FindStringSubmatch(o.Details)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

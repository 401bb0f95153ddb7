package accounts

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	str2duration "github.com/xhit/go-str2duration/v2"
)

// ParseDuration parses token lifetimes such as "7d", "2w", "12h", "90m"
// or a bare number of seconds.
func ParseDuration(expr string) (time.Duration, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("empty duration")
	}

	if secs, err := strconv.ParseInt(expr, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}

	d, err := str2duration.ParseDuration(expr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", expr, err)
	}
	return d, nil
}

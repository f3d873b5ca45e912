package commission

import "errors"

// ErrInvalidMonth is returned when a period is not a well-formed "YYYY-MM".
var ErrInvalidMonth = errors.New("invalid month")

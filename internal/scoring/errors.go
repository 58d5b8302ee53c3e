package scoring

import "errors"

// ErrInvalidWeight indicates a weight is not a finite number.
var ErrInvalidWeight = errors.New("invalid weight")

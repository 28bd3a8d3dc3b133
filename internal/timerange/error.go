package timerange

import "errors"

var (
	ErrEmptyRange         = errors.New("range end must be after its start")
	ErrInvalidGranularity = errors.New("block size must be a positive number of minutes")
)

package segment

import "errors"

var (
	ErrEmptySegment      = errors.New("segment built from empty input")
	ErrLookupInvalidSize = errors.New("segment lookup table is of invalid size")
	ErrDataInvalidSize   = errors.New("segment data table is of invalid size")
	ErrBloomLoad         = errors.New("cannot load bloom filter")
)

package fifo

import "errors"

var (
	ErrNonPositiveLotShares = errors.New("lot must have positive original shares")
	ErrRemainingOutOfRange  = errors.New("remaining shares out of range")
	ErrNegativeLotCost      = errors.New("lot cost cannot be negative")
)

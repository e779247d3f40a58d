package pixarray

import "errors"

// PixArray errors.
var (
	ErrInvalidOrder    = errors.New("pixarray: invalid channel order")
	ErrColorLength     = errors.New("pixarray: wrong color length")
	ErrColorValue      = errors.New("pixarray: color component out of range")
	ErrIndexOutOfRange = errors.New("pixarray: pixel index out of range")
	ErrHeaderTrailer   = errors.New("pixarray: header or trailer is not a byte region")
	ErrRangeLength     = errors.New("pixarray: color count does not match range")
	ErrRangeStep       = errors.New("pixarray: range step cannot be zero")
	ErrClosed          = errors.New("pixarray: pixel array has been deinitialized")
)

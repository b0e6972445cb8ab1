package rate

import "errors"

// ErrRedisUnavailable marks Redis transport or protocol failures from the
// administrative methods. Request-path methods log and fail open instead.
var ErrRedisUnavailable = errors.New("redis unavailable")

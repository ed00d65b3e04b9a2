package hashindex

import "errors"

// ErrIndexFull is returned by Insert when a bucket is full and cannot
// be split further without exceeding maxGlobalDepth — every key
// colliding past that depth hashes identically under the configured
// Hash function.
var ErrIndexFull = errors.New("hashindex: index cannot split further, bucket full")

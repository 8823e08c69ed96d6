// Package repository implements MySQL persistence for the rewards
// service.  This file defines the sentinel errors shared across
// repositories.  Business-rule outcomes (insufficient points, out of
// stock, already redeemed) are ordinary negative results, not crashes;
// handlers translate each one into a distinct HTTP response so the UI
// can relabel the action instead of showing a generic error.
package repository

import "errors"

// ErrEmailExists is returned when registering with an email that is
// already taken.  Handlers translate it to HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrRewardNotFound is returned when a reward id does not exist or the
// reward is inactive.  Handlers translate it to HTTP 404.
var ErrRewardNotFound = errors.New("reward not found")

// ErrRedemptionNotFound is returned when a redemption id does not exist.
var ErrRedemptionNotFound = errors.New("redemption not found")

// ErrInsufficientPoints is returned when a member's balance cannot cover
// a reward's price.  Handlers translate it to HTTP 402 and include the
// deficit so the UI can show how many points are missing.
var ErrInsufficientPoints = errors.New("insufficient points")

// ErrOutOfStock is returned when a reward has no remaining stock, or
// when a concurrent redemption takes the last unit first.  Handlers
// translate it to HTTP 409 with an "out_of_stock" body.
var ErrOutOfStock = errors.New("reward out of stock")

// ErrAlreadyRedeemed is returned when a member has already redeemed the
// reward.  It is also what a retry of a successful-but-unacknowledged
// redemption sees, which is what makes retries safe.  Handlers translate
// it to HTTP 409 with an "already_redeemed" body.
var ErrAlreadyRedeemed = errors.New("reward already redeemed")

// ErrConflict signals a transient serialization failure (deadlock, lock
// wait timeout).  Callers may retry a bounded number of times before
// surfacing a generic failure.
var ErrConflict = errors.New("conflict")

// ErrInvalidStatus is returned when a redemption status transition is
// not allowed (e.g. shipping a cancelled redemption).
var ErrInvalidStatus = errors.New("invalid status transition")

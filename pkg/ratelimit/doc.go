// Package ratelimit enforces minimum delays between operations against
// the target site. Two operation classes are gated independently:
// ordinary requests and login attempts.
package ratelimit

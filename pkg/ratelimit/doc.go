// Package ratelimit provides request pacing for outbound traffic.
//
// Two strategies are available behind the Limiter interface:
// FixedInterval for the strictly sequential list and detail fetches,
// where the policy is a fixed pause between requests, and TokenBucket
// for image downloads, where a small burst followed by a refill period
// is acceptable.
package ratelimit

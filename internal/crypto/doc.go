// Package crypto holds the small hashing helpers used for on-disk names.
//
// Session files are named by a fingerprint of the username so the cache
// directory does not list the e-mail addresses that have logged in.
package crypto

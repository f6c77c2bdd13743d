// Package accounts defines the server-side account store used for
// authenticated callers: the raw subscription flag and one usage counter per
// feature.
//
// Backends live in sub-packages (pgstore, redisstore, mongostore). Memory is an
// in-process implementation for tests and local development.
//
// Every write touches exactly one (account, feature) counter. Backends that can
// increment atomically also implement Incrementer.
package accounts

// Package usagetoken stores anonymous usage counts on the client.
//
// Anonymous visitors have no server-side record. Their per-feature usage count
// travels in a signed token that the server issues after every successful
// metered call and that the client echoes back on the next request. The server
// only trusts a token it can verify itself: the payload binds the feature id
// and the count and is authenticated with HMAC-SHA256.
//
// Multiple secrets are supported for rotation. The first secret signs new
// tokens, every secret is tried when verifying.
//
//	codec, err := usagetoken.New([]string{secret})
//	n := codec.Decode(token, "caption")    // 0 when absent, forged or for another feature
//	tok, err := codec.Encode("caption", n+1)
//
// Cookies maps tokens to one cookie per feature so that usage of one feature
// never consumes the allowance of another.
package usagetoken

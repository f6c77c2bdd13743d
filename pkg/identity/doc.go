// Package identity classifies every request as exactly one of two kinds of
// caller: an Authenticated account, or an Anonymous visitor.
//
// Account credentials are checked by Providers. JWTProvider verifies HS256
// session tokens, OIDCProvider verifies ID tokens issued by an OpenID Connect
// provider. The first provider that accepts the request decides the account.
// A request without valid credentials is Anonymous; it carries the per-feature
// usage tokens and the visitor id found in its cookies.
//
// Resolution never fails and has no side effects. Credentials that fail
// verification are logged and the caller is treated as Anonymous.
//
//	jwtp, _ := identity.NewJWTProvider(secret, identity.WithIssuer("quotakit"))
//	resolver := identity.NewResolver(cookies, identity.WithProviders(jwtp))
//
//	r.Use(resolver.Middleware)
//	...
//	id := identity.FromContext(r.Context())
package identity

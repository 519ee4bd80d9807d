// Package core contains the client for a SuperTokens core: connection and app
// info, protocol version negotiation, the authenticated request pipeline and
// the recipe registry that dispatches capabilities. Transport adapters live in
// other packages; core only depends on the TransportAdapter contract.
package core

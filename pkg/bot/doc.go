// Package bot is the inbound-event dispatch engine and command registry.
//
// A Bot owns the gateway connection and an ordered list of Handlers. Every
// received event is fanned out to all handlers concurrently, one goroutine per
// handler, and the receive loop never waits for them. Handlers may declare
// commands; at startup these are collected into a CommandRegistry, deployed to
// the platform, and the registry is registered as one more handler that routes
// invocations to the owning CommandBundle through an InteractionContext.
package bot

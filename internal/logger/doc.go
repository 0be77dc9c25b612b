// Package logger wraps zap with a global sugared logger and context helpers
// so that every component of the node logs through the same console encoder.
//
// Components receive a context and pull their scoped logger from it with
// FromContext; WithName and WithKV attach a component name or fixed fields.
package logger

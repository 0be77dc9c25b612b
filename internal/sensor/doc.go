// Package sensor reads the node's climate sensor and its two analog inputs
// (sound and light) over I2C using periph.io, and offers thread-safe fakes
// for tests and the bench console.
package sensor

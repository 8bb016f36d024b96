// Package content defines the boundary between the scene load coordinator and
// the external asset system that performs the actual asynchronous loads,
// unloads and activations, along with the completion primitives shared by
// asset system implementations.
package content

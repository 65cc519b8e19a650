// Package lightdm implements the greeter side of the LightDM greeter
// protocol over the pipes LightDM hands to the greeter process.
//
// Frames are a big-endian uint32 message id and payload length followed by
// the payload. Payload ints are big-endian uint32; strings are an int
// length followed by the bytes.
package lightdm

// Package resp implements the client side of the Redis serialization
// protocol (RESP). It encodes commands as arrays of bulk strings and
// decodes server replies into a tagged Value union.
//
// The package performs no I/O. Encoding appends wire bytes to caller
// buffers; decoding is driven by a resumable Decoder that is fed raw
// bytes as they arrive from a socket and yields one complete Value at
// a time. RESP2 and RESP3 reply types are both understood.
package resp

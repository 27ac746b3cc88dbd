// Package sse reassembles and decodes the server-push framing used by the
// recipe generation endpoint.
//
// Every meaningful line of the stream has the form
//
//	data: {"event": "<name>", "data": {...}}
//
// and frames are separated by blank lines. Lines without the data prefix
// (comments, keep-alives, event: fields) carry nothing and are discarded.
// Reassembly works on bytes so that a multi-byte character split across two
// reads is decoded correctly, and produces the same frames for any
// segmentation of the same input.
package sse

// Prefix starts every frame.
const Prefix = "data:"

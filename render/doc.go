// Package render produces the human-facing side of a challenge: a random
// answer and an artifact (image or audio) that encodes it. The protocol in
// the root package treats renderers as opaque collaborators.
package render

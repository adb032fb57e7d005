// Package generation turns a text description into a pixel-art SVG document by
// orchestrating calls to an external generative model. It owns the retrying
// model client, the content validation loop, scene decomposition, the bounded
// fragment fan-out and the merge of fragments into one coordinate space.
//
// Model transports, the element library and artifact persistence are consumed
// through the narrow interfaces declared here and implemented elsewhere.
package generation

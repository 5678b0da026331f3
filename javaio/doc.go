// Package javaio implements a bidirectional codec for the Java Object
// Serialization Stream Protocol: Decode turns a serialized byte stream
// into a generic, inspectable Value graph, and Encode serializes a graph
// back to wire format the originating runtime can load unmodified.
package javaio

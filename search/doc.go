// Package search retrieves the chunks most relevant to a query.
//
// The Retriever embeds the query, runs a similarity search over the
// vector index, and assembles the hits into a numbered context block
// ready for prompt construction.
package search

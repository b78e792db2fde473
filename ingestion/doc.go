// Package ingestion turns uploaded files into searchable chunks.
//
// The pipeline runs a document through extraction, chunking, embedding,
// and storage, recording the stage it is in on the document row so
// callers can poll progress. Processing happens asynchronously on a
// worker pool; failures mark the document failed and clean up any
// partial data.
package ingestion

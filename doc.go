// Package canopya is a conversational assistant for hydroponic and
// aquaponic growers.
//
// It answers free-text questions from a curated knowledge base using
// hybrid retrieval (BM25 + vector search fused with reciprocal rank
// fusion), diagnoses sensor readings against validated thresholds, and
// generates answers with a local-first, cloud-fallback Ollama setup.
//
// # Quick Start
//
// Start the server with the built-in defaults (embedded vector store,
// local Ollama):
//
//	canopya serve
//
// Ingest documents into the knowledge base:
//
//	canopya ingest docs/*.pdf
//
// Ask a question from the terminal:
//
//	canopya chat
//
// # Packages
//
//   - rag: query expansion, hybrid retrieval, generation and fallback
//   - chat: intent detection, sensor diagnostics, dispatching
//   - vector, llm: dual-backend failover wrappers
//   - embedder: instruction-prefixed multilingual embeddings
//   - ingest: document parsing, chunking, and indexing
//   - server: HTTP API
package canopya

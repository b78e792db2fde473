// Package chat produces grounded answers over retrieved context.
//
// The Service ties together retrieval, prompt construction, and chat
// completion, while the ConversationStore keeps per-conversation message
// history in memory with idle-session reclamation. Requests for the
// same conversation are serialized; different conversations proceed
// independently.
package chat

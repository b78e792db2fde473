// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chat

import "strings"

// systemPrompt is the fixed instruction prepended to every exchange.
const systemPrompt = "You are a helpful AI assistant. Answer questions based only on the provided context. Maintain conversation continuity."

// userPromptTemplate frames the retrieved context and the question.
// {context} and {question} are substituted at request time.
const userPromptTemplate = `Context:
{context}

Question: {question}

Answer the question based on the context above. If the context doesn't contain relevant information, say "I don't have enough information to answer that."

Answer:`

// PromptManager renders the prompt templates.
type PromptManager struct{}

// NewPromptManager creates a prompt manager.
func NewPromptManager() *PromptManager {
	return &PromptManager{}
}

// SystemPrompt returns the fixed system instruction.
func (m *PromptManager) SystemPrompt() string {
	return systemPrompt
}

// UserPrompt renders the user prompt with the retrieved context block
// and the question filled in.
func (m *PromptManager) UserPrompt(context, question string) string {
	return strings.NewReplacer(
		"{context}", context,
		"{question}", question,
	).Replace(userPromptTemplate)
}

package rag

import (
	"fmt"
	"strings"
)

// systemPromptID keeps answers conversational and grounded. Kept short on
// purpose: cloud models reject very long system sections.
const systemPromptID = `Kamu adalah asisten hidroponik yang ramah dan helpful.

Aturan penting:
1. Jawab langsung dan to the point, jangan mulai dengan "Dokumen menyebutkan..." atau "Dokumen tidak..."
2. Gunakan bahasa natural dan conversational, seolah chat dengan teman
3. Jawab HANYA berdasarkan info dari dokumen yang diberikan
4. Jika dokumen tidak punya info yang diminta, bilang "Maaf, aku tidak punya info spesifik untuk itu" - jangan jelaskan tentang dokumen
5. Berikan tips praktis dan actionable
6. Jangan gunakan markdown formatting (*, **, _)
7. Perhatikan konteks percakapan sebelumnya`

const systemPromptEN = `You are a friendly and helpful hydroponic assistant.

Important rules:
1. Answer directly and to the point, don't start with "The document mentions..." or "The document doesn't..."
2. Use natural and conversational language, like chatting with a friend
3. Answer ONLY based on info from provided documents
4. If documents lack requested info, say "Sorry, I don't have specific info for that" - don't explain about documents
5. Give practical and actionable tips
6. No markdown formatting (*, **, _)
7. Consider previous conversation context`

// buildGroundedPrompt assembles the context-constrained generation prompt.
func buildGroundedPrompt(query, language string, docs []Document, images []ScoredImage, history []Message) string {
	system := systemPromptID
	if language == "en" {
		system = systemPromptEN
	}

	contexts := make([]string, 0, len(docs))
	for i, doc := range docs {
		contexts = append(contexts, fmt.Sprintf("[Document %d]\n%s", i+1, doc.Text))
	}
	context := strings.Join(contexts, "\n\n")

	imageContext := ""
	if len(images) > 0 {
		imageContext = fmt.Sprintf("\n\n[Tersedia %d diagram/gambar relevan untuk visualisasi]", len(images))
	}

	historyContext := ""
	if len(history) > 0 {
		// Last 2 exchanges only
		recent := history
		if len(recent) > 4 {
			recent = recent[len(recent)-4:]
		}
		lines := make([]string, 0, len(recent))
		for _, msg := range recent {
			role := "Assistant"
			if msg.Role == "user" {
				role = "User"
			}
			lines = append(lines, role+": "+msg.Text)
		}
		historyContext = "\n\nPercakapan Sebelumnya:\n" + strings.Join(lines, "\n")
	}

	return fmt.Sprintf("%s\n\nContext:\n%s%s%s\n\nQuestion: %s\n\nAnswer:",
		system, context, imageContext, historyContext, query)
}

// buildFallbackPrompt assembles the ungrounded general-knowledge prompt,
// used when retrieval could not support an answer. It instructs an explicit
// disclaimer so the user can tell the answer is not sourced from the
// knowledge base.
func buildFallbackPrompt(query, language string) string {
	if language == "en" {
		return fmt.Sprintf(`You are an experienced hydroponics expert.

User asked: %q

The knowledge base doesn't have specific info for this question. Provide a helpful answer based on GENERAL hydroponics principles you know.

Rules:
1. Use natural conversational language
2. Start with disclaimer: "Based on general hydroponics principles..." or "Generally in hydroponics..."
3. Give practical and actionable tips
4. Keep it concise (max 3-4 sentences)
5. No markdown formatting
6. If question is too specific and you're unsure, be honest

Answer:`, query)
	}
	return fmt.Sprintf(`Kamu adalah ahli hidroponik yang berpengalaman.

User bertanya: %q

Dokumen knowledge base tidak punya info spesifik untuk pertanyaan ini. Berikan jawaban helpful berdasarkan prinsip UMUM hidroponik yang kamu tahu.

Aturan:
1. Gunakan bahasa natural dan conversational ("kamu" bukan "Anda")
2. Mulai dengan disclaimer: "Berdasarkan prinsip umum hidroponik..." atau "Secara umum dalam hidroponik..."
3. Berikan tips praktis dan actionable
4. Keep it concise (max 3-4 kalimat)
5. Jangan gunakan markdown formatting
6. Jika pertanyaan terlalu spesifik dan kamu tidak yakin, bilang jujur

Answer:`, query)
}

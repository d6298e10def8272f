package core

import "fmt"

// Prompt templates for the research loop. Wording is deliberately plain;
// the pipeline semantics do not depend on it.

const searchQueryGeneratorTemplate = `You are a search strategist. Given the user's question, produce between one
and four web search queries that together cover the question from different
angles. Output one query per line with no numbering and no extra text.
%s
User question: "%s"`

const perQueryAnalyzerTemplate = `You are a research analyst. Below are web documents retrieved for the
user's question. Extract an answer grounded ONLY in these documents.

Respond ONLY with a JSON object of the form:
{
  "answer": "concise answer based on the documents, empty if none found",
  "data": [
    {"url": "source url", "title": "source title", "fragment": "verbatim text fragment the answer is based on"}
  ]
}
If the documents contain nothing relevant, return an empty "answer" and an
empty "data" array. Do not invent sources.

User question: "%s"

Documents:
%s`

const contentCompressionTemplate = `Condense the following document, keeping only information relevant to the
search query. Preserve key facts, figures and conclusions. If nothing is
relevant, return an empty response.

Search query: "%s"

Document:
---
%s
---`

const chunkProcessorTemplate = `From the text below, extract and briefly list only the information that
directly relates to the user's question. Preserve key facts, figures and
conclusions. If the text contains nothing relevant, return an empty response.

User question: "%s"

Text:
---
%s
---`

const finalAnswerTemplate = `You are a research assistant. Using the collected evidence below, write a
complete, well-structured answer to the user's question. Cite sources by
URL where they support a claim. Do not use knowledge outside the evidence.

User question: "%s"

Evidence:
%s`

func searchQueryGeneratorPrompt(query, feedback string) string {
	feedbackLine := ""
	if feedback != "" {
		feedbackLine = fmt.Sprintf("Take previous feedback into account: %s", feedback)
	}
	return fmt.Sprintf(searchQueryGeneratorTemplate, feedbackLine, query)
}

func perQueryAnalyzerPrompt(query, documents string) string {
	return fmt.Sprintf(perQueryAnalyzerTemplate, query, documents)
}

func contentCompressionPrompt(searchQuery, content string) string {
	return fmt.Sprintf(contentCompressionTemplate, searchQuery, content)
}

func chunkProcessorPrompt(query, chunk string) string {
	return fmt.Sprintf(chunkProcessorTemplate, query, chunk)
}

func finalAnswerPrompt(query, evidence string) string {
	return fmt.Sprintf(finalAnswerTemplate, query, evidence)
}

package agent

import (
	"fmt"
	"strings"

	"github.com/praxisnote/praxisnote/internal/model"
)

// excerpt pairs a citation with the plain text behind it, in citation order.
type excerpt struct {
	citation model.Citation
	text     string
}

func buildPrompt(queryText, language string, excerpts []excerpt) string {
	if language == LanguageSpanish {
		return buildSpanishPrompt(queryText, excerpts)
	}
	return buildEnglishPrompt(queryText, excerpts)
}

func buildEnglishPrompt(queryText string, excerpts []excerpt) string {
	if len(excerpts) == 0 {
		return fmt.Sprintf(`You are a clinical documentation assistant for a therapist.
No supporting notes were found for this question.
- State clearly that no relevant notes were found.
- Do not invent clinical details.
- Answer in English.

QUESTION:
%s`, queryText)
	}
	return fmt.Sprintf(`You are a clinical documentation assistant for a therapist.
Answer the question using ONLY the note excerpts below.
- Cite excerpts as [1], [2] where they support a statement.
- If the excerpts do not answer the question, say so.
- Do not invent clinical details.
- Answer in English.

EXCERPTS:
%s

QUESTION:
%s`, formatExcerpts(excerpts), queryText)
}

func buildSpanishPrompt(queryText string, excerpts []excerpt) string {
	if len(excerpts) == 0 {
		return fmt.Sprintf(`Eres un asistente de documentación clínica para un terapeuta.
No se encontraron notas relevantes para esta pregunta.
- Indica claramente que no se encontraron notas relevantes.
- No inventes detalles clínicos.
- Responde en español.

PREGUNTA:
%s`, queryText)
	}
	return fmt.Sprintf(`Eres un asistente de documentación clínica para un terapeuta.
Responde la pregunta usando ÚNICAMENTE los extractos de notas siguientes.
- Cita los extractos como [1], [2] cuando respalden una afirmación.
- Si los extractos no responden la pregunta, dilo.
- No inventes detalles clínicos.
- Responde en español.

EXTRACTOS:
%s

PREGUNTA:
%s`, formatExcerpts(excerpts), queryText)
}

func formatExcerpts(excerpts []excerpt) string {
	var b strings.Builder
	for i, e := range excerpts {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%d] (%s) %s", i+1, e.citation.FieldName, e.text)
	}
	return b.String()
}

package lectureflow

import (
	"fmt"
	"strings"
)

// systemPrompt frames every generation call.
const systemPrompt = "You are an adaptive professor building an interactive, navigable lecture. " +
	"You produce slide content and the interactive controls a student might want next. " +
	"You always answer with a single JSON object and nothing else."

// slideWireFormat documents the JSON shape every slide-producing prompt
// asks for. Field names match the generator contract: "text" for the body,
// "action" for the control name.
const slideWireFormat = `Return a JSON object:
{
  "content": {"title": "...", "text": "2-4 educational sentences, markdown allowed"},
  "controls": [
    {"label": "Button text (specific and contextual)", "action": "one of the allowed actions", "params": {"optional": "context"}}
  ]
}
Allowed actions: advance_main_thread, go_previous, deep_dive, clarify_slide, regenerate_slide, show_example, quiz_me, extend_lecture, show_references, show_concept_map, return_to_main, quiz_answer.
Return ONLY the JSON object.`

func outlinePrompt(topic string, count int) string {
	return fmt.Sprintf(`Create a lecture outline for the topic: %q

Generate exactly %d slide titles that would form the beginning of a coherent educational presentation.
The first slide should be an introduction. Do NOT include a conclusion slide - the lecture can continue.

Return ONLY a JSON array of strings, no other text. Example:
["Introduction to Topic", "Core Concept 1", "Core Concept 2", "Advanced Topic", "Practical Applications"]`,
		topic, count)
}

func extendOutlinePrompt(topic string, existing []string, count int) string {
	return fmt.Sprintf(`Continue the lecture outline for the topic: %q

The lecture has already covered these slides:
%s

Generate %d MORE slide titles that would naturally continue this lecture, going deeper into the topic.
These should cover new aspects, advanced concepts, or related topics not yet discussed.
Do NOT include a conclusion slide - the lecture can always continue.

Return ONLY a JSON array of strings (the new slides only), no other text.`,
		topic, bulletList(existing), count)
}

func slidePrompt(gc GenerationContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are creating slide %d of %d for a lecture on %q.\n",
		gc.SlideIndex+1, gc.TotalSlides, gc.Topic)
	if gc.SlideTitle != "" {
		fmt.Fprintf(&b, "Current slide title: %q\n", gc.SlideTitle)
	} else {
		b.WriteString("No title is planned for this slide: continue the lecture naturally from the prior slide and choose a fitting title.\n")
	}
	if gc.NextTitle != "" {
		fmt.Fprintf(&b, "Next slide will be: %q\n", gc.NextTitle)
	} else {
		b.WriteString("This is currently the last planned slide. Include a \"Continue Learning\" control (action: extend_lecture).\n")
	}
	if gc.PriorSlide != nil {
		fmt.Fprintf(&b, "The previous slide was %q: %s\n", gc.PriorSlide.Title, gc.PriorSlide.Body)
	}
	fmt.Fprintf(&b, "Student knowledge level: %s.\n\n", gc.KnowledgeLevel)

	b.WriteString("Generate the slide content AND contextual interactive controls the student might want:\n")
	if gc.IsFirst {
		b.WriteString("- This is the FIRST slide - no Previous button.\n")
	} else {
		b.WriteString("- Include a \"Previous\" control (action: go_previous).\n")
	}
	if gc.NextTitle != "" {
		fmt.Fprintf(&b, "- Include a \"Next: %s\" control (action: advance_main_thread).\n", gc.NextTitle)
	}
	b.WriteString(`- Identify 1-2 key concepts from YOUR content that could be deep-dived (action: deep_dive, params: {"concept": "..."}).
- Always include "Clarify This" (action: clarify_slide) and "Regenerate" (action: regenerate_slide).
- Optionally include "Show Example" or "Quiz Me" if appropriate for the content.
- Always include "View References" (action: show_references) and "Concept Map" (action: show_concept_map).

`)
	b.WriteString(slideWireFormat)
	return b.String()
}

func clarifyPrompt(content Content, gc GenerationContext, style string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Clarify and expand on this educational content to make it more accessible.

Original title: %s
Original text: %s

`, content.Title, content.Body)
	if gc.NextTitle != "" {
		fmt.Fprintf(&b, "Next slide will be: %q\n", gc.NextTitle)
	}
	if style != "" {
		fmt.Fprintf(&b, "Requested explanation style: %s\n", style)
	}
	b.WriteString(`
Your task:
1. Define any technical terms or jargon that might be unclear
2. Break down complex concepts into clear, logical steps
3. Add a relevant analogy from the SAME DOMAIN or a related technical field (not childish comparisons)
4. Explain WHY this concept matters or how it connects to the bigger picture
5. Keep the intellectual level appropriate - clarify, don't dumb down

Title the result "[Original Title] - Clarified". Keep controls relevant to the clarified content and include navigation as appropriate.

`)
	b.WriteString(slideWireFormat)
	return b.String()
}

func deepDivePrompt(topic, concept string, gc GenerationContext) string {
	return fmt.Sprintf(`You are creating a "deep dive" detour slide for a lecture on %q.

The student clicked to learn more about: %q
They were on slide: %q

Create an in-depth explanation of %q (3-5 sentences) with contextual controls.
The FIRST control MUST be "Return to: %s" (action: return_to_main) so they can go back.
Optionally offer nested deep dives into sub-concepts, "Show Example", and "Clarify This".

%s`,
		topic, concept, gc.SlideTitle, concept, gc.SlideTitle, slideWireFormat)
}

func examplePrompt(content Content, gc GenerationContext, exampleType string) string {
	return fmt.Sprintf(`You are creating an example to illustrate a concept from a lecture on %q.

Current slide: %q
Content: %q
Example type requested: %s

Create a practical example that illustrates the concepts from this slide.
Choose the right format for the domain: markdown tables for linguistic material,
LaTeX for equations, runnable code for programming topics, and a mermaid flowchart
(simple quoted labels, no special characters) for processes. Title it "Example: [descriptive title]".
The FIRST control MUST be "Return to: %s" (action: return_to_main); also offer "Another Example" (action: show_example).

%s`,
		gc.Topic, content.Title, content.Body, exampleType, content.Title, slideWireFormat)
}

func quizPrompt(content Content, gc GenerationContext) string {
	return fmt.Sprintf(`You are creating a quiz question to test understanding of a concept from a lecture on %q.

Current slide: %q
Content: %q

Create a thoughtful quiz question about the key concepts. Do NOT reveal the answer
in the text; the answer options go in the controls, revealed when clicked.
The options A-D MUST be controls with action "quiz_answer" and params
{"answer": "A", "correct": false, "explanation": "why"}. Exactly ONE option has "correct": true.
Include a final "Skip Question" control (action: return_to_main). Title it "Quiz: %s".

%s`,
		gc.Topic, content.Title, content.Body, content.Title, slideWireFormat)
}

func referencesPrompt(topic string, covered []string) string {
	return fmt.Sprintf(`You are creating a references slide for a lecture on %q.

The lecture has covered these topics so far:
%s

Generate a curated list of high-quality learning resources: official documentation,
tutorials, in-depth articles, and interactive tools. Use REAL, well-known resources
that actually exist, with real URLs, as a markdown list organized by category:

### Official Documentation
- [Resource Name](https://real-url.com) - Brief description

Title it "References & Further Reading". The FIRST control MUST be "Return to Lecture" (action: return_to_main).

%s`,
		topic, bulletList(covered), slideWireFormat)
}

func conceptMapPrompt(topic string, covered []string) string {
	return fmt.Sprintf(`You are creating an interactive concept map for a lecture on %q.

The lecture has covered these topics so far:
%s

Create a structured concept map showing the key concepts and their relationships.
The slide text must contain ONLY a conceptmap code block with valid JSON inside:

`+"```conceptmap\n{\"root\": \"Central Topic\", \"branches\": [{\"name\": \"Branch\", \"children\": [{\"name\": \"Leaf\"}]}]}\n```"+`

Keep node labels SHORT (1-4 words), 4-8 branches, each with 0-4 children.
Title it "Concept Map: %s". The FIRST control MUST be "Return to Lecture" (action: return_to_main);
include 2-3 deep_dive controls for the most important concepts shown.

%s`,
		topic, bulletList(covered), topic, slideWireFormat)
}

func regeneratePrompt(gc GenerationContext, feedback string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are regenerating the slide at position %d of a lecture on %q: it SUPERSEDES the existing slide %q (slide %d of %d).
Stay consistent with the lecture so far - same topic, same place in the narrative - but use a fresh approach: different examples, different structure, or different emphasis. Do NOT invent an unrelated slide.
`,
		gc.SlideIndex, gc.Topic, gc.SlideTitle, gc.SlideIndex+1, gc.TotalSlides)
	if gc.NextTitle != "" {
		fmt.Fprintf(&b, "Next slide will be: %q\n", gc.NextTitle)
	}
	if feedback != "" {
		fmt.Fprintf(&b, `
USER FEEDBACK: The user has requested regeneration with this feedback:
%q
Address this feedback in your new version (different explanations, detail level, examples, tone, or factual fixes).
`, feedback)
	}
	b.WriteString("\nInclude contextual controls: always \"Regenerate\" (action: regenerate_slide) and \"Clarify This\" (action: clarify_slide), plus navigation as appropriate.\n\n")
	b.WriteString(slideWireFormat)
	return b.String()
}

func retryPrompt(original, errMsg, failed string) string {
	if len(failed) > 500 {
		failed = failed[:500]
	}
	return fmt.Sprintf(`%s

IMPORTANT: Your previous response failed to parse. Here's what went wrong:
Error: %s

Your previous response was:
%s

Please fix the issue and return ONLY valid JSON. Common issues:
- Missing quotes around strings
- Trailing commas
- Invalid escape sequences

Return ONLY the corrected JSON object, no explanations.`,
		original, errMsg, failed)
}

func bulletList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

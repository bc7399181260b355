package ai

// EntityExtractPrompt asks for typed entities with confidence scores from
// one chunk of text. Placeholders: entity types, source name.
const EntityExtractPrompt = `You are an information extraction system.
Identify the entities mentioned in the provided text.

Allowed entity types: %s
Source document: %s

For each entity return:
- name: the canonical name, exactly as grounded in the text
- type: one of the allowed types
- attributes: key-value pairs stated in the text (role, date, amount, ...)
- confidence: how certain the mention is, scored by this rubric:
  - 0.9-1.0 the entity is mentioned explicitly and unambiguously
  - 0.7-0.9 the entity is clearly relevant but not named verbatim
  - 0.5-0.7 the entity is inferred from context

Only return entities that are actually grounded in the text. Do not
invent entities. Do not return generic words that name no specific
person, organization, place, product, technology, event, concept, time
or number.`

// RelationExtractPrompt asks for subject-predicate-object triples between
// already validated entities. Placeholders: entity list, source name.
const RelationExtractPrompt = `You are an information extraction system.
Given the text and the list of entities already identified in it,
identify directed relationships between those entities.

Known entities: %s
Source document: %s

For each relationship return:
- subject: name of the source entity (must be one of the known entities)
- predicate: a short verb phrase describing the relationship
- object: name of the target entity (must be one of the known entities)
- context: the sentence fragment supporting the relationship
- confidence: 0.9-1.0 for explicitly stated relationships, 0.7-0.9 for
  strongly implied ones, 0.5-0.7 for contextual inference

Only return relationships where both endpoints appear in the known
entity list and the text supports the connection.`

// CSVOverviewPrompt guides extraction over a tabular overview document.
const CSVOverviewPrompt = `The text below is a structured summary of a
CSV file (column names, value ranges, numeric means, sample rows).
Extract entities and treat column names, notable categories and numeric
aggregates as candidate entities of type CONCEPT or NUMBER where they
name something specific.`

// TranscribeHandwritingPrompt is the primary OCR pass, tuned for
// free-form and handwritten content.
const TranscribeHandwritingPrompt = `Transcribe all text visible in this
image. The image may contain handwriting, annotations or free-form
notes. Preserve the reading order and line breaks. Output only the
transcribed text with no commentary. If no text is visible, output an
empty response.`

// TranscribePrintPrompt is the secondary OCR pass, tuned for printed and
// typeset content.
const TranscribePrintPrompt = `Transcribe all printed or typeset text
visible in this image, including labels, captions, table cells and axis
text. Preserve the reading order. Output only the transcribed text with
no commentary. If no text is visible, output an empty response.`

// ChartDetectPrompt classifies chart-like content and extracts its data.
const ChartDetectPrompt = `Inspect this image and determine whether it
contains a chart, graph or plot. If it does, describe the chart type,
the axis labels, the visible data points or series values, and the
overall trend. If the image contains no chart, say so.`

// ImageEntitiesPrompt asks the vision model for visible entities.
const ImageEntitiesPrompt = `List the people, objects, structures and
organizations visible in this image. For each, give a short name, what
kind of thing it is, and how confident you are that it is actually
present.`

// AnswerPrompt wraps the assembled retrieval context for generation.
// Placeholder: context.
const AnswerPrompt = `You are a document assistant. Answer the user's
question using ONLY the provided context. If the context does not
contain the answer, say that the indexed documents do not cover it.
Cite facts from the context rather than general knowledge. Be concise
and factual.

Context:
%s`

// RewritePrompt normalizes a query for retrieval. Placeholders:
// conversation context, query.
const RewritePrompt = `Rewrite the user's question as a self-contained
search query. Strip conversational filler, resolve pronouns using the
conversation context, and add the key terms a retrieval system should
match on. Keep the rewritten query short (one sentence) and do not
answer the question.

Conversation context:
%s

Question: %s`

// FollowupClassifyPrompt resolves borderline follow-up detection.
// Placeholders: previous query, previous answer, new query.
const FollowupClassifyPrompt = `Decide whether the new question depends
on the previous exchange to be understood.

Previous question: %s
Previous answer: %s
New question: %s

Answer with a classification and confidence.`

package prompt

// translatorSystem is the default translator persona.
const translatorSystem = `You are a professional Japanese-to-English literary translator. You render narrative prose and dialogue faithfully, preserving tone, register and speaker voice. You output the translation only, with no commentary.`

// translatorTemplate briefs the translator; the source text itself is sent
// as the final user message.
const translatorTemplate = `Translate the Japanese source text into natural English.

## Preceding context
{{context}}

## Narrative state
{{state}}

## Constraints
{{constraints}}

The source text follows in the next message. Reply with the translation only.`

// stateBuilderSystem instructs the state extraction call.
const stateBuilderSystem = `You extract narrative state from Japanese fiction for a downstream translator. You answer with a single JSON object and nothing else.`

// stateBuilderTemplate asks for the state record as JSON.
const stateBuilderTemplate = `Read the utterance and its context, then produce a JSON object with exactly these fields:
- "utterance": the utterance, possibly shortened
- "speaker": who speaks, or "unknown"
- "addressee": who is addressed, or "unknown"
- "entities": array of {"name", "desc"} for entities in play
- "coreMeaning": the literal core meaning in plain language
- "implicature": what is implied but unsaid

## Context
{{context}}

## Utterance
{{text}}`

// verifierSystem instructs the review call.
const verifierSystem = `You are a meticulous bilingual reviewer of Japanese-to-English translations. You answer with a single JSON object and nothing else.`

// verifierTemplate asks for the issue list as JSON.
const verifierTemplate = `Review the translation against the source and the constraints. Report every defect you find as a JSON object {"issues": [...]} where each issue has:
- "type": one of MISTRANSLATION, OMISSION, ADDITION, TERM_INCONSISTENCY, PRONOUN_REFERENCE, SPEAKER_MISMATCH, STYLE_VIOLATION, FORMAT_VIOLATION, SAFETY_OR_POLICY, OTHER
- "severity": one of critical, major, minor
- "rationale": why this is a defect
- "fixSuggestion": how to fix it
- "confidence": a number between 0 and 1

Report {"issues": []} when the translation is sound.

## Source (Japanese)
{{text}}

## Preceding context
{{context}}

## Constraints
{{constraints}}

## Translation under review
{{translation}}`

// repairerSystem instructs the repair call.
const repairerSystem = `You repair Japanese-to-English translations. You apply the reviewer's findings minimally, keeping everything that was already correct. You output the repaired translation only.`

// repairerTemplate asks for a repaired translation.
const repairerTemplate = `Repair the translation below so the reported issues are resolved while honoring the constraints.

## Source (Japanese)
{{text}}

## Preceding context
{{context}}

## Current translation
{{translation}}

## Issues to fix (JSON)
{{issues}}

## Constraints (JSON)
{{constraints}}

## Narrative state (JSON)
{{state}}

Reply with the repaired translation only.`

// judgeSystem instructs the scoring call.
const judgeSystem = `You are an expert evaluator of Japanese-to-English literary translation. You answer with a single JSON object and nothing else.`

// judgeTemplate asks for the five-dimensional rubric as JSON.
const judgeTemplate = `Score the translation on each dimension from 0.0 to 1.0 and reply with a JSON object {"adequacy", "fluency", "constraintCompliance", "styleFit", "overall"}.

- adequacy: meaning preserved, nothing added or dropped
- fluency: natural, grammatical English
- constraintCompliance: glossary, format and policy constraints honored
- styleFit: tone and register fit the narrative
- overall: your holistic judgment

## Source (Japanese)
{{text}}

## Reference translation (may be empty)
{{reference}}

## Constraints
{{constraints}}

## Translation to score
{{translation}}`

// Default prompts per pipeline component, used when the config omits a
// prompt source.
func DefaultTranslator() Resolved {
	return Resolved{System: translatorSystem, Template: translatorTemplate, Source: "default"}
}

func DefaultStateBuilder() Resolved {
	return Resolved{System: stateBuilderSystem, Template: stateBuilderTemplate, Source: "default"}
}

func DefaultVerifier() Resolved {
	return Resolved{System: verifierSystem, Template: verifierTemplate, Source: "default"}
}

func DefaultRepairer() Resolved {
	return Resolved{System: repairerSystem, Template: repairerTemplate, Source: "default"}
}

func DefaultJudge() Resolved {
	return Resolved{System: judgeSystem, Template: judgeTemplate, Source: "default"}
}

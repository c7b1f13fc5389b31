package prompt

import "strings"

// OutboundSeparator joins assistant turns in the extractor input
const OutboundSeparator = "\n---\n"

// ExtractorWindow is the number of most recent outbound turns sent to the extractor
const ExtractorWindow = 5

// BehaviorExtractorInstruction is the stage 1 system instruction
const BehaviorExtractorInstruction = `# ROLE: BEHAVIOR EXTRACTOR
Extract behavioral patterns from the assistant messages below.
Ignore anything said by users.
Report patterns only. Do not quote or answer the messages.

# OUTPUT FORMAT:
Behavior Report:
- Tone drift
- Hallucinated capability claims
- Over-assumption
- Missing clarification
- Marketing language
- Formatting weaknesses

Keep the report concise, under 1000 tokens.`

// PromptRewriterInstruction is the stage 2 system instruction
const PromptRewriterInstruction = `# ROLE: SENIOR AI SYSTEMS ARCHITECT
You improve a SYSTEM PROMPT by closing the behavioral gaps described in a report.
Do not answer users. Edit the rules only.

# OUTPUT REQUIREMENTS:
- The output is a SYSTEM PROMPT.
- It defines identity, constraints, tone, reasoning, scope and refusal rules.
- It contains no greetings, onboarding or conversational openings.
- It contains no domain facts such as document checklists, fees or currencies.
- It reads as internal AI configuration.

Return ONLY the improved SYSTEM PROMPT text. No markdown. No commentary.`

// ExtractorUserMessage builds the stage 1 user message from already guarded text
func ExtractorUserMessage(guarded string) string {
	return "Assistant Messages:\n" + guarded
}

// JoinOutbound keeps the last ExtractorWindow texts and joins them with OutboundSeparator
func JoinOutbound(texts []string) string {
	if len(texts) > ExtractorWindow {
		texts = texts[len(texts)-ExtractorWindow:]
	}
	return strings.Join(texts, OutboundSeparator)
}

// ComposeRewriteRequest builds the stage 2 user message. Each field is guarded
// on its own so an oversized report can never push the current prompt out.
func ComposeRewriteRequest(guard *PayloadGuard, currentPrompt, report string) string {
	if guard == nil {
		guard = NewPayloadGuard(DefaultPayloadBudget, nil)
	}
	var b strings.Builder
	b.WriteString("# INPUT 1: CURRENT SYSTEM PROMPT\n")
	b.WriteString(guard.Apply("current_prompt", currentPrompt))
	b.WriteString("\n\n# INPUT 2: BEHAVIOR REPORT\n")
	b.WriteString(guard.Apply("behavior_report", report))
	b.WriteString("\n\nAnalyze inputs and reinforce the SYSTEM PROMPT rules.")
	return b.String()
}

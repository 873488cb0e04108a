package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"notelink-ai/internal/contextutil"
)

// Agentic loop limits.
const (
	toolResultLimit     = 1200 // chars of a tool result kept in the transcript
	transcriptTokenCap  = 2000
	agentActionNone     = "none"
	agentActionFinalize = "finalize"
)

// TranscriptEntry is one step of the agentic refinement transcript.
type TranscriptEntry struct {
	Kind    string // "plan", "tool", "error", "rationale"
	Tool    string
	Content string
}

// AgentLoop is a bounded plan-act loop over a tool registry, used to fill
// gaps in low-confidence insights. The planner picks exactly one action per
// iteration from a fixed vocabulary: none, finalize, or a registered tool
// name.
type AgentLoop struct {
	gen      Generator
	registry *ToolRegistry
	maxSteps int
	maxCalls int
}

// NewAgentLoop creates an agent loop bounded by maxSteps planner iterations
// and maxCalls tool invocations.
func NewAgentLoop(gen Generator, registry *ToolRegistry, maxSteps, maxCalls int) *AgentLoop {
	return &AgentLoop{gen: gen, registry: registry, maxSteps: maxSteps, maxCalls: maxCalls}
}

type plannerDecision struct {
	Action string `json:"action"`
	Input  string `json:"input"`
	Reason string `json:"reason"`
}

// Refine runs the loop against an insight core and a gap description,
// returning the transcript. Budget exhaustion is expected termination, not an
// error; the transcript gathered so far is always returned. The external
// cancellation context is checked at every loop boundary.
func (l *AgentLoop) Refine(ctx context.Context, insightCore, gaps string) []TranscriptEntry {
	logger := contextutil.LoggerFromContext(ctx)

	var transcript []TranscriptEntry
	steps, toolCalls := 0, 0

	for steps < l.maxSteps && toolCalls < l.maxCalls {
		if ctx.Err() != nil {
			return transcript
		}

		transcript = clampTranscript(transcript, transcriptTokenCap)

		decision := l.plan(ctx, insightCore, gaps, transcript)
		steps++

		switch decision.Action {
		case agentActionNone, agentActionFinalize:
			transcript = append(transcript, TranscriptEntry{Kind: "rationale", Content: decision.Reason})
			return transcript
		}

		tool, ok := l.registry.Get(decision.Action)
		if !ok {
			transcript = append(transcript, TranscriptEntry{
				Kind:    "error",
				Content: fmt.Sprintf("unknown tool %q", decision.Action),
			})
			continue
		}

		result, err := tool.Execute(ctx, decision.Input)
		toolCalls++
		if err != nil {
			transcript = append(transcript, TranscriptEntry{
				Kind:    "error",
				Tool:    decision.Action,
				Content: err.Error(),
			})
			continue
		}

		transcript = append(transcript, TranscriptEntry{
			Kind:    "tool",
			Tool:    decision.Action,
			Content: trimToRunes(result.Content, toolResultLimit),
		})
	}

	logger.InfoContext(ctx, "agentic refinement budget exhausted", "steps", steps, "tool_calls", toolCalls)
	return transcript
}

// plan asks the planner for exactly one next step. Planner failure reads as
// finalize so a broken LLM cannot spin the loop.
func (l *AgentLoop) plan(ctx context.Context, insightCore, gaps string, transcript []TranscriptEntry) plannerDecision {
	logger := contextutil.LoggerFromContext(ctx)

	if l.gen == nil {
		return plannerDecision{Action: agentActionFinalize, Reason: "no planner available"}
	}

	var sb strings.Builder
	sb.WriteString("You are refining an insight that has gaps. Choose exactly one next action.\n\n")
	sb.WriteString("Insight: " + insightCore + "\nGaps: " + gaps + "\n\nTranscript so far:\n")
	for _, entry := range transcript {
		fmt.Fprintf(&sb, "[%s %s] %s\n", entry.Kind, entry.Tool, trimToRunes(entry.Content, 300))
	}
	fmt.Fprintf(&sb, "\nAvailable actions: none, finalize, %s.\n", strings.Join(l.registry.Names(), ", "))
	sb.WriteString(`Return a JSON object: {"action": "...", "input": "tool input if applicable", "reason": "..."}`)

	raw, err := l.gen.CompleteJSON(ctx, sb.String(), 0.3)
	if err != nil {
		logger.WarnContext(ctx, "planner call failed, finalizing", "error", err)
		return plannerDecision{Action: agentActionFinalize, Reason: "planner unavailable"}
	}

	var decision plannerDecision
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &decision); err != nil {
		logger.WarnContext(ctx, "unparsable planner decision, finalizing")
		return plannerDecision{Action: agentActionFinalize, Reason: "unparsable planner decision"}
	}
	decision.Action = strings.ToLower(strings.TrimSpace(decision.Action))
	return decision
}

// clampTranscript drops oldest entries until the transcript fits the token
// cap.
func clampTranscript(transcript []TranscriptEntry, tokenCap int) []TranscriptEntry {
	total := 0
	for _, entry := range transcript {
		total += estimateTokens(entry.Content)
	}
	for len(transcript) > 0 && total > tokenCap {
		total -= estimateTokens(transcript[0].Content)
		transcript = transcript[1:]
	}
	return transcript
}

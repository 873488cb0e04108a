package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"notelink-ai/internal/contextutil"
	"notelink-ai/internal/insight"
	"notelink-ai/internal/storage"
)

// InsightHandler handles HTTP requests for insight discovery runs.
type InsightHandler struct {
	pipeline    *insight.Pipeline
	docRepo     storage.DocumentStore
	insightRepo storage.InsightStore
	defaultTier insight.Tier
}

// NewInsightHandler creates a new InsightHandler.
func NewInsightHandler(
	pipeline *insight.Pipeline,
	docRepo storage.DocumentStore,
	insightRepo storage.InsightStore,
	defaultTier insight.Tier,
) *InsightHandler {
	return &InsightHandler{
		pipeline:    pipeline,
		docRepo:     docRepo,
		insightRepo: insightRepo,
		defaultTier: defaultTier,
	}
}

// InsightRequest is the request payload for an insight discovery run. The
// seed document is named by ID or by library-relative path.
type InsightRequest struct {
	DocumentID string `json:"document_id,omitempty"`
	RelPath    string `json:"rel_path,omitempty"`
	Tier       string `json:"tier,omitempty"` // "standard" or "extended"; empty uses the configured default
}

// InsightResponse is the response payload for an insight discovery run.
type InsightResponse struct {
	DocumentID string             `json:"document_id"`
	Tier       string             `json:"tier"`
	Cycles     int                `json:"cycles"`
	Zone       string             `json:"zone,omitempty"`
	Lambda     string             `json:"lambda,omitempty"`
	Insights   []InsightResult    `json:"insights"`
	Verdicts   []VerdictResult    `json:"verdicts,omitempty"`
	Transcript []TranscriptResult `json:"transcript,omitempty"`
}

// InsightResult is one ranked insight in the response.
type InsightResult struct {
	Mode             string                `json:"mode"`
	PairedDocuments  []string              `json:"paired_documents"`
	ReframedProblem  string                `json:"reframed_problem,omitempty"`
	InsightCore      string                `json:"insight_core"`
	Hypotheses       []string              `json:"hypotheses,omitempty"`
	EurekaMarkers    []string              `json:"eureka_markers,omitempty"`
	BayesianSurprise float64               `json:"bayesian_surprise"`
	EvidenceRefs     []insight.EvidenceRef `json:"evidence_refs"`
	Counter          *insight.CounterCheck `json:"counter,omitempty"`
	Confidence       float64               `json:"confidence"`
	Constellation    bool                  `json:"constellation,omitempty"`
	Verification     string                `json:"verification,omitempty"`
	Score            float64               `json:"score"`
}

// VerdictResult is one verified claim in the response.
type VerdictResult struct {
	Claim   string `json:"claim"`
	Verdict string `json:"verdict"`
}

// TranscriptResult is one agentic refinement transcript entry.
type TranscriptResult struct {
	Kind    string `json:"kind"`
	Tool    string `json:"tool,omitempty"`
	Content string `json:"content"`
}

// ServeHTTP runs the discovery pipeline for the requested seed document and
// persists the surviving insights.
func (h *InsightHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req InsightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.DocumentID == "" && req.RelPath == "" {
		writeError(w, http.StatusBadRequest, "document_id or rel_path is required")
		return
	}

	tier := h.defaultTier
	switch strings.ToLower(strings.TrimSpace(req.Tier)) {
	case "":
	case string(insight.TierStandard):
		tier = insight.TierStandard
	case string(insight.TierExtended):
		tier = insight.TierExtended
	default:
		writeError(w, http.StatusBadRequest, "tier must be \"standard\" or \"extended\"")
		return
	}

	documentID := req.DocumentID
	if documentID == "" {
		doc, err := h.docRepo.GetByPath(ctx, req.RelPath)
		if err == storage.ErrNotFound {
			writeError(w, http.StatusNotFound, "Document not found")
			return
		}
		if err != nil {
			logger.ErrorContext(ctx, "failed to resolve document by path", "rel_path", req.RelPath, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to resolve document")
			return
		}
		documentID = doc.ID
	}

	result, err := h.pipeline.Discover(ctx, documentID, tier)
	if err != nil {
		logger.ErrorContext(ctx, "insight discovery failed", "document_id", documentID, "error", err)
		status, message := statusForError(err)
		writeError(w, status, message)
		return
	}

	h.persistInsights(r, documentID, result)

	resp := InsightResponse{
		DocumentID: documentID,
		Tier:       string(tier),
		Cycles:     result.Cycles,
		Zone:       string(result.Zone),
		Lambda:     string(result.Lambda),
		Insights:   make([]InsightResult, 0, len(result.Insights)),
	}
	for _, ranked := range result.Insights {
		c := ranked.Candidate
		resp.Insights = append(resp.Insights, InsightResult{
			Mode:             c.Mode,
			PairedDocuments:  c.PairedDocuments,
			ReframedProblem:  c.ReframedProblem,
			InsightCore:      c.InsightCore,
			Hypotheses:       c.Hypotheses,
			EurekaMarkers:    c.EurekaMarkers,
			BayesianSurprise: c.BayesianSurprise,
			EvidenceRefs:     c.EvidenceRefs,
			Counter:          c.Counter,
			Confidence:       c.Confidence,
			Constellation:    c.Constellation,
			Verification:     c.Verification,
			Score:            ranked.Score,
		})
	}
	for _, v := range result.Verdicts {
		resp.Verdicts = append(resp.Verdicts, VerdictResult{Claim: v.Claim, Verdict: string(v.Verdict)})
	}
	for _, entry := range result.Transcript {
		resp.Transcript = append(resp.Transcript, TranscriptResult{Kind: entry.Kind, Tool: entry.Tool, Content: entry.Content})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// persistInsights stores the surviving insights. Persistence failure is
// logged, not surfaced; the caller still gets the discovery result.
func (h *InsightHandler) persistInsights(r *http.Request, documentID string, result *insight.Result) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	for _, ranked := range result.Insights {
		payload, err := json.Marshal(ranked.Candidate)
		if err != nil {
			logger.WarnContext(ctx, "failed to marshal insight payload", "error", err)
			continue
		}
		rec := &storage.InsightRecord{
			DocumentID: documentID,
			Mode:       ranked.Candidate.Mode,
			Core:       ranked.Candidate.InsightCore,
			Confidence: ranked.Candidate.Confidence,
			Payload:    string(payload),
		}
		if err := h.insightRepo.Insert(ctx, rec); err != nil {
			logger.WarnContext(ctx, "failed to persist insight", "document_id", documentID, "error", err)
		}
	}
}

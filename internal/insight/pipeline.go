package insight

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"notelink-ai/internal/contextutil"
	"notelink-ai/internal/storage"
)

// thinEvidenceFloor flags an evidence pool as thin for budget derivation.
const thinEvidenceFloor = 4

// lowConfidenceFloor triggers agentic refinement on the leading insight.
const lowConfidenceFloor = 0.6

// Pipeline runs the full discovery sequence for one seed document: query
// expansion, iterative retrieval under the depth controller, concurrent pair
// synthesis, counter-checking, ranking, and the optional enrichment stages.
type Pipeline struct {
	docs      storage.DocumentStore
	chunks    storage.ChunkStore
	feedback  storage.FeedbackStore
	gen       Generator
	retriever *Retriever
	synth     *Synthesizer
	searcher  WebSearcher
	tools     *ToolRegistry
	costs     EscalationCosts
	ctrlCfg   ControllerConfig
}

// NewPipeline wires the discovery pipeline. gen, feedback, searcher, and
// tools may be nil; the corresponding stages degrade or disable themselves.
func NewPipeline(
	docs storage.DocumentStore,
	chunks storage.ChunkStore,
	feedback storage.FeedbackStore,
	gen Generator,
	retriever *Retriever,
	searcher WebSearcher,
	tools *ToolRegistry,
	costs EscalationCosts,
	ctrlCfg ControllerConfig,
) *Pipeline {
	return &Pipeline{
		docs:      docs,
		chunks:    chunks,
		feedback:  feedback,
		gen:       gen,
		retriever: retriever,
		synth:     NewSynthesizer(gen),
		searcher:  searcher,
		tools:     tools,
		costs:     costs,
		ctrlCfg:   ctrlCfg,
	}
}

// Result is the outcome of one discovery run.
type Result struct {
	Insights   []RankedCandidate
	Cycles     int
	Zone       Zone
	Lambda     LambdaState
	Memory     MemoryAction
	Verdicts   []ClaimVerdict
	Transcript []TranscriptEntry
}

// runState carries the mutable state threaded through the pipeline stages.
type runState struct {
	seedID      string
	seedTitle   string
	seedText    string
	budget      Budget
	queries     []string
	candidates  []RetrievedCandidate
	synthesized []*Candidate
	ranked      []RankedCandidate
	assessment  Assessment
	result      *Result
}

// stage is one optional pipeline step. Enrichments are modelled as an
// explicit stage list with enable flags, keeping them composable and
// independently testable.
type stage struct {
	name    string
	enabled bool
	run     func(ctx context.Context, st *runState) error
}

// Discover finds connection insights between the seed document and the rest
// of the corpus. A corpus with nothing usable yields an empty result, not an
// error. The external context is checked at every loop boundary; cancelling
// returns the best result gathered so far without corrupting any state.
func (p *Pipeline) Discover(ctx context.Context, seedDocumentID string, tier Tier) (*Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	st := &runState{
		seedID: seedDocumentID,
		budget: PolicyFor(tier),
		result: &Result{},
	}

	seed, err := p.docs.GetByID(ctx, seedDocumentID)
	if err != nil {
		if err == storage.ErrNotFound {
			return st.result, nil
		}
		return nil, fmt.Errorf("failed to load seed document: %w", err)
	}
	st.seedTitle = seed.Title

	seedFragments, err := p.fragmentsFor(ctx, seedDocumentID)
	if err != nil {
		return nil, err
	}
	if len(seedFragments) == 0 {
		logger.InfoContext(ctx, "seed document has no chunks, nothing to synthesize from", "document_id", seedDocumentID)
		return st.result, nil
	}
	st.seedText = joinFragmentTexts(seedFragments)

	st.queries = ExpandQueries(ctx, p.gen, st.seedTitle, st.seedText, st.budget.MaxQueries, st.budget.TempProbe)

	if err := p.retrieveWithDeepening(ctx, tier, st); err != nil {
		return nil, err
	}
	if len(st.candidates) == 0 {
		logger.InfoContext(ctx, "no candidate documents retrieved", "document_id", seedDocumentID)
		return st.result, nil
	}

	if err := p.synthesizePairs(ctx, st); err != nil {
		return nil, err
	}

	stages := []stage{
		{name: "counter_check", enabled: p.gen != nil, run: p.counterStage},
		{name: "ranking", enabled: true, run: p.rankStage},
		{name: "bridge", enabled: st.budget.EnableMultiHop, run: p.bridgeStage},
		{name: "self_evolution", enabled: st.budget.EnableSelfEvolution, run: p.evolveStage},
		{name: "agentic_refinement", enabled: st.budget.MaxAgenticRefinements > 0 && p.tools != nil, run: p.refineStage},
		{name: "verification", enabled: p.searcher != nil, run: p.verifyStage},
	}

	for _, s := range stages {
		if ctx.Err() != nil {
			return st.result, nil
		}
		if !s.enabled {
			continue
		}
		if err := s.run(ctx, st); err != nil {
			logger.WarnContext(ctx, "pipeline stage failed, continuing", "stage", s.name, "error", err)
		}
	}

	st.result.Insights = st.ranked
	return st.result, nil
}

// retrieveWithDeepening runs the retrieval loop under the depth controller:
// each cycle retrieves candidates, measures signals, and continues only while
// the controller allows deepening and the cost/benefit gate clears.
func (p *Pipeline) retrieveWithDeepening(ctx context.Context, tier Tier, st *runState) error {
	logger := contextutil.LoggerFromContext(ctx)

	controller := NewController(p.ctrlCfg, st.budget.MaxCycles)
	callCount := 0

	for {
		if ctx.Err() != nil {
			return nil
		}

		candidates, err := p.retriever.Retrieve(ctx, st.queries, st.seedID, st.budget)
		if err != nil {
			return fmt.Errorf("candidate retrieval failed: %w", err)
		}
		callCount++
		st.candidates = candidates
		st.result.Cycles = controller.Cycle() + 1

		sig, sigOK, evidenceTexts := p.cycleSignals(ctx, st)
		tension := TensionOrMax(sig, sigOK)
		st.assessment = controller.Update(tension, 0)
		st.result.Zone = st.assessment.Zone
		st.result.Lambda = st.assessment.Lambda
		st.result.Memory = st.assessment.Memory

		// The budget adapts to measured uncertainty, never past the tier
		// ceiling.
		st.budget = DeriveBudget(tier, sig, len(evidenceTexts) < thinEvidenceFloor)

		if !st.assessment.ShouldDeepen {
			return nil
		}
		estTokens := estimateTokens(strings.Join(evidenceTexts, " "))
		if !ShouldEscalate(sig, estTokens, callCount, p.costs, 0) {
			logger.DebugContext(ctx, "escalation gate closed", "cycle", controller.Cycle())
			return nil
		}

		// Deepen: widen the query set with vocabulary from the newly
		// retrieved evidence.
		st.queries = deepenQueries(st.queries, evidenceTexts, st.budget.MaxQueries)
	}
}

// cycleSignals computes this cycle's signals from the candidate scores and a
// sample of the candidates' evidence.
func (p *Pipeline) cycleSignals(ctx context.Context, st *runState) (Signals, bool, []string) {
	logger := contextutil.LoggerFromContext(ctx)

	scores := make([]float64, 0, len(st.candidates))
	for _, c := range st.candidates {
		scores = append(scores, c.Score)
	}

	var evidenceTexts []string
	for _, cand := range st.candidates {
		fragments, err := p.fragmentsFor(ctx, cand.DocumentID)
		if err != nil {
			logger.WarnContext(ctx, "failed to load candidate fragments for signals", "document_id", cand.DocumentID, "error", err)
			return Signals{}, false, nil
		}
		selected := SelectEvidence(fragments, strings.Join(st.queries, " "), SelectorOptions{
			MaxFragments: 2,
			CharBudget:   st.budget.CharBudget,
		})
		for _, frag := range selected {
			evidenceTexts = append(evidenceTexts, frag.Text)
		}
	}

	return ComputeSignals(st.queries, scores, evidenceTexts), true, evidenceTexts
}

// synthesizePairs fans out one synthesis call per candidate pairing and
// collects all results before ranking. Completion order does not matter; the
// ranking step only runs after full collection.
func (p *Pipeline) synthesizePairs(ctx context.Context, st *runState) error {
	seedFragments, err := p.fragmentsFor(ctx, st.seedID)
	if err != nil {
		return err
	}

	results := make([]*Candidate, len(st.candidates))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, cand := range st.candidates {
		g.Go(func() error {
			candFragments, err := p.fragmentsFor(gctx, cand.DocumentID)
			if err != nil {
				return err
			}

			pool := append(append([]Fragment(nil), seedFragments...), candFragments...)
			evidence := SelectEvidence(pool, strings.Join(st.queries, " "), SelectorOptions{
				MaxFragments: st.budget.MaxFragments,
				CharBudget:   st.budget.CharBudget,
			})

			candidate, err := p.synth.GenerateInsight(gctx, evidence, st.budget.TempInsight, "")
			if err != nil {
				return err
			}

			mu.Lock()
			results[i] = candidate
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("pair synthesis failed: %w", err)
	}

	st.synthesized = st.synthesized[:0]
	for _, c := range results {
		if c != nil {
			st.synthesized = append(st.synthesized, c)
		}
	}
	return nil
}

func (p *Pipeline) counterStage(ctx context.Context, st *runState) error {
	for _, candidate := range st.synthesized {
		if ctx.Err() != nil {
			return nil
		}
		fragments, err := p.evidenceFragments(ctx, candidate)
		if err != nil {
			return err
		}
		candidate.Counter = p.synth.CounterCheck(ctx, candidate.InsightCore, fragments, st.budget.TempInsight)
	}
	return nil
}

func (p *Pipeline) rankStage(ctx context.Context, st *runState) error {
	var fb Feedback
	if p.feedback != nil {
		up, down, err := p.feedback.ListClaims(ctx)
		if err != nil {
			// Feedback is an enrichment; rank without it.
			contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to load feedback claims", "error", err)
		} else {
			fb = Feedback{Upvoted: up, Downvoted: down}
		}
	}
	st.ranked = RankCandidates(st.synthesized, fb)
	return nil
}

func (p *Pipeline) evolveStage(ctx context.Context, st *runState) error {
	if len(st.ranked) == 0 {
		return nil
	}
	st.ranked[0].Candidate.InsightCore = p.synth.Evolve(ctx, st.ranked[0].Candidate.InsightCore, st.budget.TempInsight)
	return nil
}

func (p *Pipeline) refineStage(ctx context.Context, st *runState) error {
	if len(st.ranked) == 0 || st.ranked[0].Candidate.Confidence >= lowConfidenceFloor {
		return nil
	}
	loop := NewAgentLoop(p.gen, p.tools, st.budget.MaxAgenticRefinements, st.budget.MaxAgenticRefinements)
	gaps := fmt.Sprintf("confidence %.2f below %.2f; hypotheses unverified", st.ranked[0].Candidate.Confidence, lowConfidenceFloor)
	st.result.Transcript = loop.Refine(ctx, st.ranked[0].Candidate.InsightCore, gaps)
	return nil
}

func (p *Pipeline) verifyStage(ctx context.Context, st *runState) error {
	if len(st.ranked) == 0 {
		return nil
	}
	top := &st.ranked[0].Candidate
	preferred, verdicts := VerifyInsight(ctx, p.searcher, st.seedTitle, top.InsightCore, top.Hypotheses)
	top.InsightCore = preferred
	st.result.Verdicts = verdicts
	for _, v := range verdicts {
		if v.Claim == preferred {
			top.Verification = string(v.Verdict)
			break
		}
	}
	return nil
}

// fragmentsFor loads a document's child chunks as an evidence fragment pool.
func (p *Pipeline) fragmentsFor(ctx context.Context, documentID string) ([]Fragment, error) {
	children, err := p.chunks.ListChildrenByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks for %s: %w", documentID, err)
	}
	fragments := make([]Fragment, 0, len(children))
	for _, child := range children {
		fragments = append(fragments, Fragment{
			DocumentID:    child.DocumentID,
			ParentID:      child.ParentID,
			ChildID:       child.ID,
			Text:          child.Text,
			TokenEstimate: estimateTokens(child.Text),
		})
	}
	return fragments, nil
}

// evidenceFragments rebuilds the fragment pool a candidate's citations point
// into.
func (p *Pipeline) evidenceFragments(ctx context.Context, candidate *Candidate) ([]Fragment, error) {
	var pool []Fragment
	for _, docID := range candidate.PairedDocuments {
		fragments, err := p.fragmentsFor(ctx, docID)
		if err != nil {
			return nil, err
		}
		pool = append(pool, fragments...)
	}
	return pool, nil
}

// deepenQueries widens the query set with the dominant vocabulary of the
// retrieved evidence, bounded by the query budget.
func deepenQueries(queries []string, evidenceTexts []string, maxQueries int) []string {
	extra := keywordQueries("", strings.Join(evidenceTexts, " "), 2)
	seen := make(map[string]struct{}, len(queries))
	for _, q := range queries {
		seen[strings.ToLower(q)] = struct{}{}
	}
	for _, q := range extra {
		if _, dup := seen[strings.ToLower(q)]; dup {
			continue
		}
		queries = append(queries, q)
	}
	if len(queries) > maxQueries {
		queries = queries[len(queries)-maxQueries:]
	}
	return queries
}

func joinFragmentTexts(fragments []Fragment) string {
	var sb strings.Builder
	for _, frag := range fragments {
		sb.WriteString(frag.Text)
		sb.WriteString(" ")
	}
	return sb.String()
}

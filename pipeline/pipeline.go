// Package pipeline runs one sponsorship proposal from request to checked,
// optionally saved, optionally approval-gated document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"artbiz_proposal/approval"
	"artbiz_proposal/generator"
	"artbiz_proposal/proposal"
	"artbiz_proposal/publisher"
	"artbiz_proposal/retrieval"
	"artbiz_proposal/store"
	"artbiz_proposal/template"
	"artbiz_proposal/tools"
)

const (
	ModeSections = "llm_sections"
	ModeLegacy   = "legacy"

	ActionProposalPublish = "proposal_publish"

	// EvidenceQuery 是检索证据时固定使用的查询。
	EvidenceQuery = "후원 패키지 혜택 KPI 관객개발"

	DefaultBudget    int64 = 30_000_000
	DefaultWeeks           = 2
	defaultTierCount       = 3
	defaultGoal            = "관객개발 캠페인"
	previewRunes           = 220
)

// Options wires the collaborators. Agent is required; a nil Searcher means no
// evidence, a nil Ledger gets an in-memory one, a nil Renderer the HTML one.
type Options struct {
	Template    *template.Template
	Agent       *generator.Agent
	Searcher    retrieval.Searcher
	Store       store.VersionStore
	Renderer    publisher.Renderer
	Ledger      approval.Ledger
	AutoApprove bool
	TopK        int
	Verbose     bool
	Logger      *log.Logger
}

type Pipeline struct {
	tpl         *template.Template
	agent       *generator.Agent
	searcher    retrieval.Searcher
	store       store.VersionStore
	renderer    publisher.Renderer
	ledger      approval.Ledger
	autoApprove bool
	topK        int
	now         func() time.Time
	verbose     bool
	logger      *log.Logger
}

func New(o Options) (*Pipeline, error) {
	if o.Agent == nil {
		return nil, errors.New("generator agent required")
	}
	if o.Template == nil {
		o.Template = template.Default()
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Ledger == nil {
		o.Ledger = approval.NewMemoryLedger()
	}
	if o.Renderer == nil {
		o.Renderer = publisher.NewHTMLRenderer(o.Verbose, o.Logger)
	}
	if o.TopK <= 0 {
		o.TopK = 2
	}
	return &Pipeline{
		tpl:         o.Template,
		agent:       o.Agent,
		searcher:    o.Searcher,
		store:       o.Store,
		renderer:    o.Renderer,
		ledger:      o.Ledger,
		autoApprove: o.AutoApprove,
		topK:        o.TopK,
		now:         time.Now,
		verbose:     o.Verbose,
		logger:      o.Logger,
	}, nil
}

func (p *Pipeline) infof(format string, args ...interface{}) {
	if !p.verbose {
		return
	}
	p.logger.Printf("[INFO] "+format, args...)
}

// Request is the "generate proposal" input. Zero values take the defaults.
type Request struct {
	SponsorName     string   `json:"sponsor_name"`
	CampaignTitle   string   `json:"campaign_title"`
	BudgetTotal     int64    `json:"budget_total_krw"`
	Weeks           int      `json:"weeks"`
	OrgType         string   `json:"org_type"`
	StartDate       string   `json:"start_date,omitempty"`
	RewriteMode     string   `json:"rewrite_mode"`
	Normalize       *bool    `json:"normalize,omitempty"`
	Save            bool     `json:"save"`
	Format          string   `json:"format"`
	AutoApprove     *bool    `json:"auto_approve,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	TemplateVersion string   `json:"template_version,omitempty"`
	// Notes 作为补充说明交给模型。
	Notes string `json:"notes,omitempty"`
}

type SavedVersion struct {
	ID    string      `json:"id"`
	Paths store.Paths `json:"paths"`
}

// Result carries the document (or the pending action) and every report.
type Result struct {
	Proposal                string                     `json:"proposal,omitempty"`
	PendingAction           *approval.Action           `json:"pending_action,omitempty"`
	RewriteMode             string                     `json:"rewrite_mode"`
	ToolData                tools.ToolData             `json:"tool_data"`
	UsedDocs                []store.UsedDoc            `json:"used_docs"`
	NormalizeReport         *proposal.NormalizeReport  `json:"normalize_report,omitempty"`
	StructureReport         proposal.StructureReport   `json:"structure_report"`
	ConsistencyReport       proposal.ConsistencyReport `json:"consistency_report"`
	CitationEnforceReport   proposal.CitationReport    `json:"citation_enforce_report"`
	CitationPlacementReport proposal.PlacementReport   `json:"citation_placement_report"`
	FootnoteReport          proposal.FootnoteReport    `json:"footnote_report"`
	SavedVersion            *SavedVersion              `json:"saved_version,omitempty"`
}

// PublishPayload is what a pending proposal action stores in the ledger.
type PublishPayload struct {
	ActionType              string                     `json:"action_type"`
	SponsorName             string                     `json:"sponsor_name"`
	CampaignTitle           string                     `json:"campaign_title"`
	ToolData                tools.ToolData             `json:"tool_data"`
	Draft                   string                     `json:"draft"`
	UsedDocs                []store.UsedDoc            `json:"used_docs"`
	SavedVersion            *SavedVersion              `json:"saved_version"`
	StructureReport         proposal.StructureReport   `json:"structure_report"`
	ConsistencyReport       proposal.ConsistencyReport `json:"consistency_report"`
	CitationEnforceReport   proposal.CitationReport    `json:"citation_enforce_report"`
	CitationPlacementReport proposal.PlacementReport   `json:"citation_placement_report"`
	FootnoteReport          proposal.FootnoteReport    `json:"footnote_report"`
}

type settings struct {
	mode        string
	normalize   bool
	renderDoc   bool
	autoApprove bool
}

func (p *Pipeline) resolve(req *Request) (settings, error) {
	s := settings{normalize: true, autoApprove: p.autoApprove}
	if req.BudgetTotal == 0 {
		req.BudgetTotal = DefaultBudget
	}
	if req.Weeks == 0 {
		req.Weeks = DefaultWeeks
	}
	if req.OrgType == "" {
		req.OrgType = "general"
	}
	if req.StartDate == "" {
		req.StartDate = p.now().Format("2006-01-02")
	}
	switch strings.TrimSpace(req.RewriteMode) {
	case "", ModeSections:
		s.mode = ModeSections
	case ModeLegacy:
		s.mode = ModeLegacy
	default:
		return s, fmt.Errorf("%w: rewrite_mode %q", tools.ErrInvalidInput, req.RewriteMode)
	}
	doc, err := publisher.WantsDocument(req.Format)
	if err != nil {
		return s, fmt.Errorf("%w: %v", tools.ErrInvalidInput, err)
	}
	s.renderDoc = doc
	if req.Normalize != nil {
		s.normalize = *req.Normalize
	}
	if req.AutoApprove != nil {
		s.autoApprove = *req.AutoApprove
	}
	return s, nil
}

// Generate runs the whole sequence. On a persistence failure the populated
// result is returned together with an error wrapping store.ErrPersistence;
// when approval is required that result carries the reports but no proposal.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*Result, error) {
	s, err := p.resolve(&req)
	if err != nil {
		return nil, err
	}
	td, err := p.computeTools(req)
	if err != nil {
		return nil, err
	}
	res := &Result{RewriteMode: s.mode, ToolData: td}

	evidence, err := p.retrieve(ctx)
	if err != nil {
		return nil, err
	}
	res.UsedDocs = usedDocs(evidence)
	p.infof("retrieved %d evidence passages", len(evidence))

	tables := proposal.RenderTables(td)
	brief := generator.Brief{
		Sponsor:  req.SponsorName,
		Campaign: req.CampaignTitle,
		ToolData: td,
		Tables:   tables,
		Evidence: texts(evidence),
		Notes:    req.Notes,
	}

	var doc string
	cover := publisher.Meta{
		Title:    fmt.Sprintf("%s - %s", req.SponsorName, req.CampaignTitle),
		Sponsor:  req.SponsorName,
		Campaign: req.CampaignTitle,
	}
	if s.mode == ModeSections {
		n, err := p.agent.Sections(ctx, brief)
		if err != nil {
			return nil, err
		}
		doc = proposal.Assemble(p.tpl, "", n.Map(), tables)
		cover.Summary = generator.Digest(n.ExecutiveSummary)
	} else {
		d, err := p.agent.Draft(ctx, brief)
		if err != nil {
			return nil, err
		}
		doc = d.Markdown
		if d.Title != "" {
			cover.Title = d.Title
		}
		cover.Summary = d.Digest
	}
	p.infof("draft ready mode=%s (%d bytes)", s.mode, len(doc))

	if s.normalize {
		var nr proposal.NormalizeReport
		doc, nr = proposal.Normalize(p.tpl, doc)
		res.NormalizeReport = &nr
	}
	res.StructureReport = proposal.CheckStructure(p.tpl, doc)

	doc, res.CitationEnforceReport = proposal.EnforceSectionCitations(p.tpl, doc, proposal.DefaultMinPerSection)
	res.CitationPlacementReport = proposal.CitationPlacementCheck(p.tpl, doc, proposal.DefaultMinTotalMarkers)
	doc, res.FootnoteReport = proposal.ApplyFootnotes(p.tpl, doc, previews(res.UsedDocs))
	res.ConsistencyReport = proposal.CheckConsistency(doc, td)
	p.infof("reports structure=%.2f consistency=%.2f placement=%.2f",
		res.StructureReport.Score, res.ConsistencyReport.Score, res.CitationPlacementReport.Score)

	res.Proposal = doc
	if req.Save {
		saved, err := p.save(ctx, req, s, doc, res, cover)
		res.SavedVersion = saved
		if err != nil {
			if !s.autoApprove {
				res.Proposal = ""
			}
			return res, err
		}
	}

	if !s.autoApprove {
		action, err := p.ledger.Create(ctx, PublishPayload{
			ActionType:              ActionProposalPublish,
			SponsorName:             req.SponsorName,
			CampaignTitle:           req.CampaignTitle,
			ToolData:                td,
			Draft:                   doc,
			UsedDocs:                res.UsedDocs,
			SavedVersion:            res.SavedVersion,
			StructureReport:         res.StructureReport,
			ConsistencyReport:       res.ConsistencyReport,
			CitationEnforceReport:   res.CitationEnforceReport,
			CitationPlacementReport: res.CitationPlacementReport,
			FootnoteReport:          res.FootnoteReport,
		})
		if err != nil {
			return res, fmt.Errorf("%w: create action: %v", store.ErrPersistence, err)
		}
		res.PendingAction = &action
		res.Proposal = ""
		p.infof("proposal held for approval action=%s", action.ID)
	}
	return res, nil
}

func (p *Pipeline) computeTools(req Request) (tools.ToolData, error) {
	bs, err := tools.ComputeBudgetSplit(req.BudgetTotal, tools.DefaultRatios())
	if err != nil {
		return tools.ToolData{}, err
	}
	goal := req.CampaignTitle
	if goal == "" {
		goal = defaultGoal
	}
	tl, err := tools.ComputeTimeline(req.StartDate, req.Weeks, goal)
	if err != nil {
		return tools.ToolData{}, err
	}
	pkg, err := tools.ComputeSponsorshipPackage(defaultTierCount, req.BudgetTotal, req.OrgType)
	if err != nil {
		return tools.ToolData{}, err
	}
	return tools.ToolData{BudgetSplit: &bs, Timeline: &tl, SponsorshipPackage: &pkg}, nil
}

func (p *Pipeline) retrieve(ctx context.Context) ([]retrieval.Evidence, error) {
	if p.searcher == nil {
		return nil, nil
	}
	ev, err := p.searcher.Search(ctx, EvidenceQuery, p.topK, nil)
	if err != nil {
		if errors.Is(err, generator.ErrProviderUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", retrieval.ErrUnavailable, err)
	}
	return ev, nil
}

func (p *Pipeline) save(ctx context.Context, req Request, s settings, doc string, res *Result, cover publisher.Meta) (*SavedVersion, error) {
	if p.store == nil {
		return nil, fmt.Errorf("%w: no version store configured", store.ErrPersistence)
	}
	meta, err := p.store.Save(ctx, store.SaveParams{
		Sponsor:         req.SponsorName,
		Campaign:        req.CampaignTitle,
		Markdown:        doc,
		ToolData:        res.ToolData,
		UsedDocs:        res.UsedDocs,
		Tags:            req.Tags,
		TemplateVersion: req.TemplateVersion,
	})
	if err != nil {
		return nil, err
	}
	p.infof("saved version id=%s", meta.ID)
	if s.renderDoc {
		cover.Date = p.now()
		if err := p.renderer.Render(doc, meta.Paths.Doc, cover); err != nil {
			return &SavedVersion{ID: meta.ID, Paths: meta.Paths}, err
		}
	}
	return &SavedVersion{ID: meta.ID, Paths: meta.Paths}, nil
}

// ApproveResult is the outcome of a decision on a pending action.
type ApproveResult struct {
	Action   approval.Action    `json:"action"`
	Proposal string             `json:"proposal,omitempty"`
	Version  *store.VersionMeta `json:"version,omitempty"`
}

// Approve decides a pending action. The saved version is marked first and the
// ledger follows, so a failed version update leaves the action pending.
// Approval ends in done with the version approved; rejection marks both rejected.
func (p *Pipeline) Approve(ctx context.Context, actionID string, approve bool, by string) (ApproveResult, error) {
	a, err := p.ledger.Get(ctx, actionID)
	if err != nil {
		return ApproveResult{}, err
	}
	// approved 但未到 done 的动作允许再次批准以完成。
	resuming := approve && a.Status == approval.StatusApproved
	if a.Status != approval.StatusPending && !resuming {
		return ApproveResult{}, fmt.Errorf("%w: action %s is %s", approval.ErrInvalidStatus, a.ID, a.Status)
	}
	var payload PublishPayload
	if err := decodePayload(a, &payload); err != nil {
		return ApproveResult{}, fmt.Errorf("%w: action %s payload: %v", store.ErrPersistence, a.ID, err)
	}
	if payload.ActionType != ActionProposalPublish || payload.Draft == "" {
		return ApproveResult{}, fmt.Errorf("%w: action %s payload is not a proposal draft", store.ErrPersistence, a.ID)
	}

	out := ApproveResult{}
	if approve {
		out.Proposal = payload.Draft
	}
	if payload.SavedVersion != nil && p.store != nil {
		m, err := p.markVersion(ctx, payload.SavedVersion.ID, approve, by)
		if err != nil {
			return ApproveResult{}, err
		}
		out.Version = &m
	}

	if !approve {
		if out.Action, err = p.ledger.UpdateStatus(ctx, actionID, approval.StatusRejected); err != nil {
			return ApproveResult{}, err
		}
		p.infof("action %s rejected by %q", actionID, by)
		return out, nil
	}
	if !resuming {
		if _, err := p.ledger.UpdateStatus(ctx, actionID, approval.StatusApproved); err != nil {
			return ApproveResult{}, err
		}
	}
	if out.Action, err = p.ledger.UpdateStatus(ctx, actionID, approval.StatusDone); err != nil {
		return ApproveResult{}, err
	}
	p.infof("action %s approved by %q", actionID, by)
	return out, nil
}

// markVersion 对已处于目标状态的版本视为成功，使账本更新失败后的重试能够完成。
func (p *Pipeline) markVersion(ctx context.Context, id string, approve bool, by string) (store.VersionMeta, error) {
	mark, want := p.store.MarkRejected, store.StatusRejected
	if approve {
		mark, want = p.store.MarkApproved, store.StatusApproved
	}
	m, err := mark(ctx, id, by)
	if !errors.Is(err, store.ErrStatusConflict) {
		return m, err
	}
	v, gerr := p.store.Get(ctx, id)
	if gerr == nil && v.Status == want {
		return v.VersionMeta, nil
	}
	return store.VersionMeta{}, err
}

// Action returns a ledger entry.
func (p *Pipeline) Action(ctx context.Context, id string) (approval.Action, error) {
	return p.ledger.Get(ctx, id)
}

// Versions lists saved versions, newest first.
func (p *Pipeline) Versions(ctx context.Context, limit int) ([]store.VersionMeta, error) {
	if p.store == nil {
		return []store.VersionMeta{}, nil
	}
	return p.store.List(ctx, limit)
}

// Version returns one saved version with its inputs.
func (p *Pipeline) Version(ctx context.Context, id string) (store.Version, error) {
	if p.store == nil {
		return store.Version{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return p.store.Get(ctx, id)
}

// Template returns the canonical skeleton.
func (p *Pipeline) Template() string {
	return proposal.Skeleton(p.tpl)
}

// Check reports the structure of md without changing or saving anything.
func (p *Pipeline) Check(md string) proposal.StructureReport {
	return proposal.CheckStructure(p.tpl, md)
}

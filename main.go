package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"artbiz_proposal/approval"
	"artbiz_proposal/config"
	"artbiz_proposal/generator"
	"artbiz_proposal/pipeline"
	"artbiz_proposal/publisher"
	"artbiz_proposal/retrieval"
	"artbiz_proposal/server"
	"artbiz_proposal/store"
	"artbiz_proposal/template"
)

var verbose bool

// ledgerFile holds pending approvals next to the file-mode version index.
const ledgerFile = "approvals.json"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	configPath := flag.String("config", "config/config.json", "path to config.json")
	serve := flag.Bool("serve", false, "start web server")
	addr := flag.String("addr", "", "http listen address when --serve (overrides config.server_addr)")
	sponsor := flag.String("sponsor", "", "sponsor name")
	campaign := flag.String("campaign", "", "campaign title")
	budget := flag.Int64("budget", pipeline.DefaultBudget, "total budget in KRW")
	weeks := flag.Int("weeks", pipeline.DefaultWeeks, "campaign length in weeks (1-12)")
	org := flag.String("org", "general", "organisation type (general|festival|museum|theatre)")
	mode := flag.String("mode", pipeline.ModeSections, "rewrite mode: llm_sections|legacy")
	save := flag.Bool("save", false, "save the proposal as a new version")
	format := flag.String("format", "both", "saved output: md|pdf|both")
	mock := flag.Bool("mock", false, "use the offline mock model")
	flag.BoolVar(&verbose, "v", false, "enable info logs")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(err)
	}
	if *mock {
		cfg.LLM.Provider = generator.ProviderMock
	}

	ctx := context.Background()
	pipe, cleanup, err := buildPipeline(ctx, cfg)
	if err != nil {
		fail(err)
	}
	defer cleanup()

	// Web server mode
	if *serve {
		srv, err := server.New(pipe, server.Options{ApproveToken: cfg.ApproveToken, Verbose: verbose, Logger: log.Default()})
		if err != nil {
			fail(err)
		}
		listen := cfg.ServerAddr
		if *addr != "" {
			listen = *addr
		}
		if listen == "" {
			listen = ":8080"
		}
		log.Printf("Starting web server on %s", listen)
		if err := http.ListenAndServe(listen, srv.Routes()); err != nil {
			fail(err)
		}
		return
	}

	if *sponsor == "" || *campaign == "" {
		fail(fmt.Errorf("--sponsor and --campaign are required"))
	}
	req := pipeline.Request{
		SponsorName:   *sponsor,
		CampaignTitle: *campaign,
		BudgetTotal:   *budget,
		Weeks:         *weeks,
		OrgType:       *org,
		RewriteMode:   *mode,
		Save:          *save,
		Format:        *format,
	}
	log.Printf("[cli] generating sponsor=%q campaign=%q mode=%s", req.SponsorName, req.CampaignTitle, req.RewriteMode)
	res, err := pipe.Generate(ctx, req)
	if err != nil {
		if res != nil {
			printReports(res)
		}
		fail(err)
	}
	printReports(res)
	if res.SavedVersion != nil {
		log.Printf("[cli] saved version id=%s md=%s doc=%s", res.SavedVersion.ID, res.SavedVersion.Paths.MD, res.SavedVersion.Paths.Doc)
	}
	if res.PendingAction != nil {
		log.Printf("[cli] approval required action_id=%s", res.PendingAction.ID)
		fmt.Println(res.PendingAction.ID)
		return
	}
	fmt.Print(res.Proposal)
}

func buildPipeline(ctx context.Context, cfg config.Config) (*pipeline.Pipeline, func(), error) {
	cleanup := func() {}
	llm, err := buildLLM(cfg)
	if err != nil {
		return nil, cleanup, err
	}
	agent, err := generator.NewAgent(llm)
	if err != nil {
		return nil, cleanup, err
	}
	tpl := template.Default()
	if cfg.TemplatePath != "" {
		if tpl, err = template.Load(cfg.TemplatePath); err != nil {
			return nil, cleanup, err
		}
	}

	docs, err := retrieval.LoadDir(cfg.Docs.Dir)
	if err != nil {
		return nil, cleanup, err
	}
	infof("loaded %d evidence chunks from %s", docs.Len(), cfg.Docs.Dir)

	opts := pipeline.Options{
		Template:    tpl,
		Agent:       agent,
		Searcher:    docs,
		Renderer:    publisher.NewHTMLRenderer(verbose, log.Default()),
		AutoApprove: cfg.AutoApprove,
		TopK:        cfg.Docs.TopK,
		Verbose:     verbose,
		Logger:      log.Default(),
	}

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := store.OpenPool(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = pool.Close
		versions := store.NewPgStore(pool, cfg.Storage.Dir, cfg.TemplateVersion)
		if err := versions.EnsureSchema(ctx); err != nil {
			return nil, cleanup, err
		}
		ledger := approval.NewPgLedger(pool)
		if err := ledger.EnsureSchema(ctx); err != nil {
			return nil, cleanup, err
		}
		searcher := retrieval.NewPgSearcher(pool)
		if err := searcher.EnsureSchema(ctx); err != nil {
			return nil, cleanup, err
		}
		n, err := searcher.Ingest(ctx, docs.Chunks())
		if err != nil {
			return nil, cleanup, err
		}
		infof("ingested %d chunks into postgres", n)
		opts.Store, opts.Ledger, opts.Searcher = versions, ledger, searcher
	default:
		versions, err := store.NewFileStore(cfg.Storage.Dir, cfg.TemplateVersion)
		if err != nil {
			return nil, cleanup, err
		}
		ledger, err := approval.NewFileLedger(filepath.Join(cfg.Storage.Dir, ledgerFile))
		if err != nil {
			return nil, cleanup, err
		}
		opts.Store, opts.Ledger = versions, ledger
	}

	pipe, err := pipeline.New(opts)
	return pipe, cleanup, err
}

func buildLLM(cfg config.Config) (generator.LLMClient, error) {
	settings := &generator.LLMSettings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	}
	switch cfg.LLM.Provider {
	case generator.ProviderOpenAI:
		return generator.NewOpenAILLMFromConfig(settings)
	case generator.ProviderDeepSeek:
		// DeepSeek 提供 OpenAI 兼容接口，需填写 base_url（例如官方/网关地址）。
		if cfg.LLM.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(settings)
	case generator.ProviderGemini:
		return generator.NewGeminiLLMFromConfig(settings)
	case generator.ProviderMock:
		return generator.MockLLM{}, nil
	case "":
		return nil, fmt.Errorf("llm config missing; please set llm.provider/model/api_key in config")
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}
}

func printReports(res *pipeline.Result) {
	if !verbose {
		return
	}
	reports := map[string]any{
		"structure_report":          res.StructureReport,
		"consistency_report":        res.ConsistencyReport,
		"citation_placement_report": res.CitationPlacementReport,
		"footnote_report":           res.FootnoteReport,
	}
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return
	}
	infof("reports:\n%s", data)
}

func infof(format string, args ...interface{}) {
	if !verbose {
		return
	}
	log.Printf("[INFO] "+format, args...)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/fridge"
	bt "github.com/fwojciec/fridge/bubbletea"
	"github.com/fwojciec/fridge/json"
	"github.com/fwojciec/fridge/validate"
	"github.com/spf13/cobra"
)

type generateOptions struct {
	ingredients []string
	out         string
	tui         bool
	noSave      bool
}

func (a *app) generateCmd() *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Generate recipes from a prompt and ingredients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.generate(cmd.Context(), strings.Join(args, " "), opts)
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&opts.ingredients, "ingredient", "i", nil, "Ingredient to cook with (repeatable)")
	f.StringVar(&opts.out, "out", "", "Export the settled generation to this JSON file")
	f.BoolVar(&opts.tui, "tui", false, "Follow the generation in an interactive terminal UI")
	f.BoolVar(&opts.noSave, "no-save", false, "Keep generated recipes local instead of saving them")
	return cmd
}

func (a *app) generate(ctx context.Context, prompt string, opts generateOptions) error {
	transport, err := resolveTransport(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	validator, err := validate.New()
	if err != nil {
		return err
	}

	// Warm the history view; saving marks it stale.
	before, err := a.history(ctx)
	if err != nil {
		a.logger.Warn("load history", "error", err)
	}

	req := fridge.Request{
		Prompt:      prompt,
		Ingredients: opts.ingredients,
		GroupID:     a.cfg.GroupID,
		UserID:      a.cfg.UserID,
	}

	var (
		st          fridge.State
		sent        fridge.Request
		runErr      error
		interactive bool
	)
	if opts.tui {
		st, sent, runErr = a.generateTUI(ctx, transport, validator, req, opts)
		interactive = true
	} else {
		st, runErr = a.generatePlain(ctx, transport, validator, req, opts)
		sent = req
	}

	var pe *fridge.PromptError
	switch {
	case errors.As(runErr, &pe):
		return errors.New(pe.Reason.Message())
	case errors.Is(runErr, context.Canceled):
		fmt.Fprintln(a.stdout, "已取消。")
		return nil
	case runErr != nil:
		return runErr
	}

	if opts.out != "" && st.Phase.Settled() {
		if err := json.Save(opts.out, json.Export{Request: sent, State: st, ExportedAt: time.Now()}); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Fprintf(a.stdout, "已匯出至 %s\n", opts.out)
	}

	if st.Phase == fridge.PhaseFailed {
		return fmt.Errorf("%s (%s)", st.ErrorMessage, st.ErrorCode)
	}
	if interactive || st.Phase != fridge.PhaseCompleted || opts.noSave {
		return nil
	}
	if a.views.Stale(a.historyView()) {
		after, err := a.history(ctx)
		if err != nil {
			a.logger.Warn("reload history", "error", err)
			return nil
		}
		fmt.Fprintf(a.stdout, "歷史食譜：%d 道（原 %d 道）\n", len(after), len(before))
	}
	return nil
}

// finalizer builds the side-effect pipeline for completed generations.
func (a *app) finalizer(logger *slog.Logger, noSave bool) *fridge.Finalizer {
	opts := []fridge.FinalizerOption{fridge.WithFinalizerLogger(logger)}
	if !noSave {
		opts = append(opts,
			fridge.WithRecipeStore(a.store),
			fridge.WithNotifier(a.store),
			fridge.WithInvalidator(a.views),
		)
	}
	return fridge.NewFinalizer(opts...)
}

func (a *app) generatePlain(ctx context.Context, transport fridge.Transport, validator fridge.Validator, req fridge.Request, opts generateOptions) (fridge.State, error) {
	p := &printer{out: a.stdout, status: a.stderr}
	g := fridge.NewGenerator(transport, validator,
		fridge.WithFinalizer(a.finalizer(a.logger, opts.noSave)),
		fridge.WithLogger(a.logger),
		fridge.WithObserver(p.observe),
	)
	st, err := runGeneration(ctx, g, req)
	if err != nil {
		return st, err
	}
	p.finish(st)
	return st, nil
}

func (a *app) generateTUI(ctx context.Context, transport fridge.Transport, validator fridge.Validator, req fridge.Request, opts generateOptions) (fridge.State, fridge.Request, error) {
	// Logging to the terminal would corrupt the alt screen.
	logger := a.logger
	if a.logFile == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	fin := a.finalizer(logger, opts.noSave)
	generate := func(ctx context.Context, req fridge.Request, onState func(fridge.State)) (fridge.State, error) {
		g := fridge.NewGenerator(transport, validator,
			fridge.WithFinalizer(fin),
			fridge.WithLogger(logger),
			fridge.WithObserver(onState),
		)
		return runGeneration(ctx, g, req)
	}

	final, err := bt.Run(ctx, bt.New(generate, req, fridge.DefaultTheme()))
	if err != nil {
		return fridge.State{}, req, err
	}
	return final.State(), final.Request(), nil
}

// runGeneration runs one generation to completion. Cancelling ctx cancels
// the generation, leaving the partial state in place, and returns ctx.Err().
// Observers are not called once it returns.
func runGeneration(ctx context.Context, g *fridge.Generator, req fridge.Request) (fridge.State, error) {
	if err := g.Start(ctx, req); err != nil {
		return g.State(), err
	}
	st, err := g.Wait(ctx)
	if err == nil || ctx.Err() == nil {
		return st, err
	}
	// The generation returns to PhaseIdle on its own once ctx is done.
	_, _ = g.Wait(context.Background())
	return g.State(), ctx.Err()
}

// printer streams narrative text as it arrives. Observers may be called
// from more than one goroutine, so it locks.
type printer struct {
	out    io.Writer
	status io.Writer

	mu      sync.Mutex
	printed int
	stage   string
}

func (p *printer) observe(s fridge.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(s.Fragments) < p.printed {
		p.printed = 0
	}
	for _, f := range s.Fragments[p.printed:] {
		fmt.Fprint(p.out, f)
	}
	p.printed = len(s.Fragments)
	if s.Phase.Active() && s.Stage != "" && s.Stage != p.stage {
		p.stage = s.Stage
		fmt.Fprintf(p.status, "… %s (%d%%)\n", s.Stage, s.Progress)
	}
}

func (p *printer) finish(s fridge.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.printed > 0 {
		fmt.Fprintln(p.out)
	}
	if s.Phase != fridge.PhaseCompleted {
		return
	}
	fmt.Fprintf(p.out, "\n%s：共 %d 道食譜", s.Stage, len(s.Recipes))
	if s.Report.Saved > 0 {
		fmt.Fprintf(p.out, "，已儲存 %d 道", s.Report.Saved)
	}
	fmt.Fprintln(p.out)
	if s.RemainingQuota != nil {
		fmt.Fprintf(p.out, "剩餘次數：%d\n", *s.RemainingQuota)
	}
	for i, r := range s.Recipes {
		writeRecipe(p.out, i+1, r)
	}
}

func writeRecipe(w io.Writer, n int, r fridge.Recipe) {
	fmt.Fprintf(w, "\n%d. %s\n", n, r.Name)
	var meta []string
	for _, s := range []string{r.Category, r.Difficulty} {
		if s != "" {
			meta = append(meta, s)
		}
	}
	if r.Servings > 0 {
		meta = append(meta, fmt.Sprintf("%d 人份", r.Servings))
	}
	if r.CookTime > 0 {
		meta = append(meta, fmt.Sprintf("%d 分鐘", r.CookTime))
	}
	if len(meta) > 0 {
		fmt.Fprintf(w, "   %s\n", strings.Join(meta, " · "))
	}
	if r.Description != "" {
		fmt.Fprintf(w, "   %s\n", r.Description)
	}
	writeIngredientLine(w, "食材", r.MainIngredients())
	writeIngredientLine(w, "調味", r.Seasonings())
	for i, step := range r.Steps {
		fmt.Fprintf(w, "   %d) %s\n", i+1, step)
	}
}

func writeIngredientLine(w io.Writer, label string, ings []fridge.Ingredient) {
	if len(ings) == 0 {
		return
	}
	parts := make([]string, len(ings))
	for i, ing := range ings {
		parts[i] = strings.TrimSpace(ing.Name + " " + ing.Quantity + ing.Unit)
	}
	fmt.Fprintf(w, "   %s：%s\n", label, strings.Join(parts, "、"))
}

// Package engine turns recognized receipt text, and optionally the page
// images, into a single categorized result. Local heuristics run first; the
// remote vision scanner is consulted only when they are not conclusive.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-interpreter/internal/category"
	"github.com/zombor/receipt-interpreter/internal/extract"
	"github.com/zombor/receipt-interpreter/internal/scanning"
)

// DefaultRemoteTimeout bounds a single remote vision call.
const DefaultRemoteTimeout = 30 * time.Second

// LearnedSource supplies the learned keywords used when matching.
type LearnedSource interface {
	List() ([]category.LearnedKeyword, error)
}

// Input is one scan event: the OCR text, the page images, or both.
type Input struct {
	Text  string
	Pages []scanning.Page
}

// Engine is safe for concurrent use as long as its collaborators are.
type Engine struct {
	matcher *category.Matcher
	learned LearnedSource
	remote  scanning.Scanner
	timeout time.Duration
}

// New builds an Engine. learned and remote may be nil; without a remote,
// receipts that need escalation keep their local result.
func New(matcher *category.Matcher, learned LearnedSource, remote scanning.Scanner, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return &Engine{
		matcher: matcher,
		learned: learned,
		remote:  remote,
		timeout: timeout,
	}
}

// Interpret never fails: every remote problem degrades to the local result.
func (e *Engine) Interpret(ctx context.Context, in Input) Result {
	local, match := e.interpretLocal(in.Text)

	state := Decide(local.Amount.Valid, match.Strength)
	if state == NeedsRemote && (e.remote == nil || len(in.Pages) == 0) {
		state = LocalOnly
	}

	slog.Debug("Escalation decided",
		"state", state,
		"amount_found", local.Amount.Valid,
		"category", match.Category,
		"score", match.Score,
		"strength", match.Strength,
	)

	if state != NeedsRemote {
		return local
	}

	remote, err := e.scanRemote(ctx, in.Pages)
	if err != nil {
		slog.Warn("Remote scan failed, keeping local result", "error", err)
		return local
	}
	if remote.Empty() {
		slog.Info("Remote scan contributed nothing, keeping local result")
		return local
	}

	result := merge(local, remote)
	slog.Info("Receipt interpreted", "source", result.Source, "confidence", result.Confidence)
	return result
}

// InterpretLocal runs only the local pipeline.
func (e *Engine) InterpretLocal(text string) Result {
	result, _ := e.interpretLocal(text)
	return result
}

func (e *Engine) interpretLocal(text string) (Result, category.Match) {
	result := Result{Source: SourceLocal}

	if amount, ok := extract.ExtractAmount(text); ok {
		result.Amount = decimal.NewNullDecimal(amount.Value)
	}
	if date, ok := extract.ExtractDate(text); ok {
		result.Date = &date
	}
	if merchant, ok := extract.ExtractMerchant(text); ok {
		result.Merchant = merchant
	}

	match := e.matcher.Match(text, e.learnedKeywords())
	if match.Found() {
		result.Category = match.Category
	}

	result.Confidence = ClassifyConfidence(result.Amount.Valid, match.Found())
	return result, match
}

func (e *Engine) learnedKeywords() []category.LearnedKeyword {
	if e.learned == nil {
		return nil
	}
	learned, err := e.learned.List()
	if err != nil {
		slog.Warn("Unable to load learned keywords", "error", err)
		return nil
	}
	return learned
}

func (e *Engine) scanRemote(ctx context.Context, pages []scanning.Page) (*scanning.Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.remote.Scan(ctx, pages)
}

// Package pipeline orchestrates the extraction workflow stages.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/retroenv/bccextract/internal/layout"
	"github.com/retroenv/bccextract/internal/loader"
	"github.com/retroenv/bccextract/internal/options"
	"github.com/retroenv/bccextract/internal/rom"
	"github.com/retroenv/bccextract/internal/text"
	"github.com/retroenv/bccextract/internal/verification"
	"github.com/retroenv/bccextract/internal/writer"
	"github.com/retroenv/retrogolib/log"
)

// Exit codes of an extraction run.
const (
	ExitSuccess      = 0
	ExitLoadFailure  = 1
	ExitMalformed    = 2
	ExitRecordErrors = 3
)

const pointerSize = 4

// Pipeline orchestrates the complete extraction workflow.
type Pipeline struct {
	logger *log.Logger
	loader *loader.Loader
}

// Result summarizes an extraction run.
type Result struct {
	Records int // elements emitted without any error
	Errors  int // per-record errors
}

// ExitCode classifies the result. A run that reported errors without a single
// cleanly decoded element indicates a malformed image or wrong table bases.
func (r Result) ExitCode() int {
	switch {
	case r.Errors == 0:
		return ExitSuccess
	case r.Records == 0:
		return ExitMalformed
	default:
		return ExitRecordErrors
	}
}

// New creates a new extraction pipeline.
func New(logger *log.Logger) *Pipeline {
	return &Pipeline{
		logger: logger,
		loader: loader.New(logger),
	}
}

// Execute loads the image, writes the extracted tables to the configured sink
// and verifies the output if requested. Errors returned are load time or I/O
// errors, per-record errors are part of the result.
func (p *Pipeline) Execute(ctx context.Context, opts options.Program, extraction options.Extraction) (Result, error) {
	img, err := p.loader.Load(opts.Input, MinImageSize(extraction))
	if err != nil {
		return Result{}, fmt.Errorf("loading image: %w", err)
	}

	out, closeOutput, err := writer.Open(opts.Output)
	if err != nil {
		return Result{}, err
	}

	result, err := p.ExecuteWithImage(ctx, img, opts, extraction, out)
	if closeErr := closeOutput(); err == nil && closeErr != nil {
		err = fmt.Errorf("closing output: %w", closeErr)
	}
	if err != nil {
		return result, err
	}

	if opts.Verify {
		decoder, err := NewDecoder(extraction.Text)
		if err != nil {
			return result, err
		}
		if err := verification.VerifyOutput(ctx, p.logger, opts, img, extraction, decoder); err != nil {
			return result, fmt.Errorf("verification failed: %w", err)
		}
		p.logger.Info("Verification successful")
	}
	return result, nil
}

// ExecuteWithImage runs the extraction on an image that is already in memory.
func (p *Pipeline) ExecuteWithImage(ctx context.Context, img *rom.Image, opts options.Program,
	extraction options.Extraction, out io.Writer) (Result, error) {

	decoder, err := NewDecoder(extraction.Text)
	if err != nil {
		return Result{}, err
	}

	emitter, err := writer.New(opts.Format, out)
	if err != nil {
		return Result{}, fmt.Errorf("creating emitter: %w", err)
	}

	p.printInfo(opts, img)

	banner := writer.Banner{
		Path:  opts.Input,
		Title: p.loader.Title(img),
		Size:  img.Len(),
	}
	if err := emitter.Banner(banner); err != nil {
		return Result{}, err
	}

	run := &extractionRun{
		logger:     p.logger,
		img:        img,
		extraction: extraction,
		decoder:    decoder,
		emitter:    emitter,
	}
	if err := run.process(ctx); err != nil {
		return run.result, err
	}

	if err := emitter.Footer(run.result.Errors); err != nil {
		return run.result, err
	}

	if run.result.Errors > 0 {
		p.logger.Warn("Extraction finished with errors",
			log.Int("errors", run.result.Errors),
			log.Int("records", run.result.Records))
	}
	return run.result, nil
}

// NewDecoder creates the string decoder for the text options. A configured
// terminator or terminator mask overrides the one of the table.
func NewDecoder(cfg options.Text) (text.Decoder, error) {
	table, err := text.LoadTable(cfg.Table, cfg.Wide)
	if err != nil {
		return text.Decoder{}, err
	}

	if cfg.Terminator >= 0 {
		if cfg.Terminator > 0xff && !table.Wide {
			return text.Decoder{}, fmt.Errorf("terminator 0x%x does not fit the byte table %s", cfg.Terminator, table.Name)
		}
		if cfg.Terminator > 0xffff {
			return text.Decoder{}, fmt.Errorf("terminator 0x%x exceeds 16 bits", cfg.Terminator)
		}
		table.Terminator = uint16(cfg.Terminator)
	}
	if cfg.TerminatorMask != 0 {
		table.TerminatorMask = cfg.TerminatorMask
	}

	return text.NewDecoder(table, cfg.MaxScan), nil
}

// MinImageSize returns the image size required by the enabled tables: the
// highest table base plus the largest element size.
func MinImageSize(extraction options.Extraction) int {
	var base, size int
	for _, table := range extraction.Tables() {
		if !table.Enabled {
			continue
		}
		base = max(base, table.Base)
		size = max(size, elementSize(table))
	}
	return base + size
}

func elementSize(table *options.Table) int {
	switch table.Name {
	case options.Encounters:
		return layout.Encounter().Size
	case options.Chips:
		return layout.Chip().Size
	case options.StartingChips:
		return layout.StartingChips().Size
	default:
		return pointerSize
	}
}

// printInfo prints information about the image being processed.
func (p *Pipeline) printInfo(opts options.Program, img *rom.Image) {
	if opts.Quiet {
		return
	}

	p.logger.Info("Processing GBA ROM",
		log.String("file", opts.Input),
		log.String("title", p.loader.Title(img)),
		log.Int("size", img.Len()),
	)
}

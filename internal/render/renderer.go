package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cyphera/sdd-notifier/internal/cardcrypto"
	"github.com/cyphera/sdd-notifier/internal/types/business"
)

// Config carries the renderer's external settings.
type Config struct {
	// OutputDir, when set, receives a copy of every rendered artifact.
	OutputDir  string
	CSVColumns []string
	Now        func() time.Time
}

// Renderer produces the artifacts for one payee record.
type Renderer struct {
	template   *Template
	rasterizer Rasterizer
	cfg        Config
	logger     *zap.Logger
}

func NewRenderer(tmpl *Template, rasterizer Rasterizer, cfg Config, logger *zap.Logger) *Renderer {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if len(cfg.CSVColumns) == 0 {
		cfg.CSVColumns = DefaultCSVColumns
	}
	return &Renderer{
		template:   tmpl,
		rasterizer: rasterizer,
		cfg:        cfg,
		logger:     logger,
	}
}

// Render builds the document for detail and returns the PDF artifact, followed
// by the CSV artifact when includeCSV is set.
func (r *Renderer) Render(ctx context.Context, detail business.PayeeDetail, card *cardcrypto.DecryptedCard, requestType string, includeCSV bool) ([]business.RenderedArtifact, error) {
	doc := BuildDocument(detail, card, requestType, r.cfg.Now())

	pdf, err := r.RenderPDF(ctx, doc)
	if err != nil {
		return nil, err
	}
	artifacts := []business.RenderedArtifact{pdf}

	if includeCSV {
		csvArtifact, err := r.RenderCSV(doc)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, csvArtifact)
	}

	if r.cfg.OutputDir != "" {
		r.archive(doc, artifacts)
	}
	return artifacts, nil
}

// RenderPDF transforms doc and rasterizes the presentation.
func (r *Renderer) RenderPDF(ctx context.Context, doc *Document) (business.RenderedArtifact, error) {
	presentation, err := r.template.Transform(doc)
	if err != nil {
		return business.RenderedArtifact{}, err
	}

	content, err := r.rasterizer.Rasterize(ctx, presentation)
	if err != nil {
		return business.RenderedArtifact{}, &RenderError{Stage: stageRasterize, Reason: "rasterizer failed", Err: err}
	}
	if len(content) == 0 {
		return business.RenderedArtifact{}, &RenderError{Stage: stageRasterize, Reason: "rasterizer produced no output"}
	}

	return r.artifact(doc, business.ArtifactPDF, content), nil
}

// RenderCSV writes the document's fields as a one-row table.
func (r *Renderer) RenderCSV(doc *Document) (business.RenderedArtifact, error) {
	content, err := WriteCSV(doc, r.cfg.CSVColumns)
	if err != nil {
		return business.RenderedArtifact{}, err
	}
	return r.artifact(doc, business.ArtifactCSV, content), nil
}

func (r *Renderer) artifact(doc *Document, kind business.ArtifactKind, content []byte) business.RenderedArtifact {
	txID, _ := doc.Slot(SlotTransactionID)
	return business.RenderedArtifact{
		Kind:          kind,
		Content:       content,
		TransactionID: txID,
		Filename:      ArtifactFilename(doc.RequestType, txID, kind.Extension()),
	}
}

// ArtifactFilename builds a filesystem-safe "<requestType>_<transactionId>.<ext>".
func ArtifactFilename(requestType, transactionID, ext string) string {
	return sanitize(requestType) + "_" + sanitize(transactionID) + "." + ext
}

func sanitize(s string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
	if out == "" {
		return "unknown"
	}
	return out
}

// archive copies the artifacts and the document tree into OutputDir. Failures
// are logged; the artifacts are already complete.
func (r *Renderer) archive(doc *Document, artifacts []business.RenderedArtifact) {
	for _, a := range artifacts {
		if err := writeFileAtomic(r.cfg.OutputDir, a.Filename, a.Content); err != nil {
			r.logger.Warn("failed to archive artifact",
				zap.String("filename", a.Filename),
				zap.Error(err))
		}
	}

	tree, err := doc.XML()
	if err != nil {
		r.logger.Warn("failed to serialize document tree", zap.Error(err))
		return
	}
	txID, _ := doc.Slot(SlotTransactionID)
	name := ArtifactFilename(doc.RequestType, txID, "xml")
	if err := writeFileAtomic(r.cfg.OutputDir, name, tree); err != nil {
		r.logger.Warn("failed to archive document tree", zap.String("filename", name), zap.Error(err))
	}
}

// writeFileAtomic writes through a temp file in dir; the temp file is removed on any failure.
func writeFileAtomic(dir, name string, content []byte) (err error) {
	tmp, err := os.CreateTemp(dir, ".sdd-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return nil
}

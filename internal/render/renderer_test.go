package render_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cyphera/sdd-notifier/internal/cardcrypto"
	"github.com/cyphera/sdd-notifier/internal/render"
	"github.com/cyphera/sdd-notifier/internal/types/business"
)

type fakeRasterizer struct {
	calls []*render.Presentation
	out   []byte
	err   error
}

func (f *fakeRasterizer) Rasterize(ctx context.Context, p *render.Presentation) ([]byte, error) {
	f.calls = append(f.calls, p)
	return f.out, f.err
}

func newTestRenderer(r render.Rasterizer, cfg render.Config) *render.Renderer {
	cfg.Now = func() time.Time { return fixedNow }
	return render.NewRenderer(render.DefaultTemplate(), r, cfg, zap.NewNop())
}

func TestRenderer_Render(t *testing.T) {
	ctx := context.Background()
	card := cardcrypto.NewDecryptedCard("1234567890123456")

	t.Run("pdf only", func(t *testing.T) {
		raster := &fakeRasterizer{out: []byte("%PDF-fake")}
		artifacts, err := newTestRenderer(raster, render.Config{}).Render(ctx, testDetail(), card, "SDD", false)
		require.NoError(t, err)
		require.Len(t, artifacts, 1)
		assert.Equal(t, business.ArtifactPDF, artifacts[0].Kind)
		assert.Equal(t, "TX123", artifacts[0].TransactionID)
		assert.Equal(t, "SDD_TX123.pdf", artifacts[0].Filename)
		assert.Len(t, raster.calls, 1)
	})

	t.Run("pdf and csv", func(t *testing.T) {
		raster := &fakeRasterizer{out: []byte("%PDF-fake")}
		artifacts, err := newTestRenderer(raster, render.Config{CSVColumns: []string{"TransactionId", "Amount", "CardLast4", "Missing"}}).
			Render(ctx, testDetail(), card, "SDD", true)
		require.NoError(t, err)
		require.Len(t, artifacts, 2)
		assert.Equal(t, business.ArtifactCSV, artifacts[1].Kind)
		assert.Equal(t, "TransactionId,Amount,CardLast4,Missing\nTX123,125.50,3456,\n", string(artifacts[1].Content))
	})

	t.Run("rasterizer failure", func(t *testing.T) {
		raster := &fakeRasterizer{err: errors.New("font missing")}
		_, err := newTestRenderer(raster, render.Config{}).Render(ctx, testDetail(), card, "SDD", true)
		var renderErr *render.RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, "rasterize", renderErr.Stage)
	})

	t.Run("empty rasterizer output", func(t *testing.T) {
		raster := &fakeRasterizer{}
		_, err := newTestRenderer(raster, render.Config{}).Render(ctx, testDetail(), card, "SDD", false)
		var renderErr *render.RenderError
		assert.ErrorAs(t, err, &renderErr)
	})

	t.Run("missing required slot", func(t *testing.T) {
		raster := &fakeRasterizer{out: []byte("%PDF-fake")}
		detail := testDetail()
		detail.TransactionID = ""
		_, err := newTestRenderer(raster, render.Config{}).Render(ctx, detail, card, "SDD", false)
		var missing *render.MissingSlotError
		assert.ErrorAs(t, err, &missing)
		assert.Empty(t, raster.calls)
	})
}

func TestRenderer_Archive(t *testing.T) {
	dir := t.TempDir()
	raster := &fakeRasterizer{out: []byte("%PDF-fake")}
	card := cardcrypto.NewDecryptedCard("1234567890123456")

	_, err := newTestRenderer(raster, render.Config{OutputDir: dir}).Render(context.Background(), testDetail(), card, "SDD", true)
	require.NoError(t, err)

	pdf, err := os.ReadFile(filepath.Join(dir, "SDD_TX123.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-fake", string(pdf))

	_, err = os.Stat(filepath.Join(dir, "SDD_TX123.csv"))
	assert.NoError(t, err)

	tree, err := os.ReadFile(filepath.Join(dir, "SDD_TX123.xml"))
	require.NoError(t, err)
	assert.NotContains(t, string(tree), "1234567890123456")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestArtifactFilename(t *testing.T) {
	assert.Equal(t, "SDD_TX_1_2.pdf", render.ArtifactFilename("SDD", "TX/1.2", "pdf"))
	assert.Equal(t, "SDD_unknown.csv", render.ArtifactFilename("SDD", "", "csv"))
}

func TestPDFRasterizer(t *testing.T) {
	doc := render.BuildDocument(testDetail(), cardcrypto.NewDecryptedCard("1234567890123456"), "SDD", fixedNow)
	p, err := render.DefaultTemplate().Transform(doc)
	require.NoError(t, err)

	out, err := render.NewPDFRasterizer(0).Rasterize(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = render.NewPDFRasterizer(128).Rasterize(ctx, p)
	assert.ErrorIs(t, err, context.Canceled)
}

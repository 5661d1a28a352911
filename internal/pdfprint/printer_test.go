package pdfprint

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/go-rod/rod/lib/proto"
)

// fakeRenderer records the page it was asked to print.
type fakeRenderer struct {
	result  []byte
	err     error
	content string
	opts    *proto.PagePrintToPDF
	closed  bool
}

func (f *fakeRenderer) RenderFromFile(_ context.Context, filePath string, opts *proto.PagePrintToPDF) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	f.content = string(data)
	f.opts = opts
	return f.result, f.err
}

func (f *fakeRenderer) Close() error {
	f.closed = true
	return nil
}

func TestPrinter_Print(t *testing.T) {
	t.Parallel()

	fake := &fakeRenderer{result: []byte("%PDF-1.7")}
	p := &Printer{renderer: fake}

	got, err := p.Print(context.Background(), `<p><img src="a.png"></p>`, t.TempDir(), Options{PageSize: "a4"})
	if err != nil {
		t.Fatalf("Print() unexpected error: %v", err)
	}
	if string(got) != "%PDF-1.7" {
		t.Errorf("Print() = %q, want %q", got, "%PDF-1.7")
	}
	if !strings.Contains(fake.content, `src="file://`) {
		t.Errorf("printed page = %q, want rewritten image path", fake.content)
	}
	if *fake.opts.PaperWidth != 8.27 {
		t.Errorf("PaperWidth = %v, want 8.27", *fake.opts.PaperWidth)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}
	if !fake.closed {
		t.Error("Close() did not close the renderer")
	}
}

func TestPrinter_Print_Errors(t *testing.T) {
	t.Parallel()

	renderErr := errors.New("browser crashed")
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		opts    Options
		fake    *fakeRenderer
		wantErr error
	}{
		{
			name:    "renderer error propagates",
			ctx:     context.Background(),
			fake:    &fakeRenderer{err: renderErr},
			wantErr: renderErr,
		},
		{
			name:    "unknown page size",
			ctx:     context.Background(),
			opts:    Options{PageSize: "tabloid"},
			fake:    &fakeRenderer{},
			wantErr: ErrPageSize,
		},
		{
			name:    "canceled context",
			ctx:     canceled,
			fake:    &fakeRenderer{},
			wantErr: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := &Printer{renderer: tt.fake}
			_, err := p.Print(tt.ctx, "<p>x</p>", "", tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Print() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildPDFOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		opts       Options
		wantWidth  float64
		wantHeight float64
		wantBottom float64
		wantFooter bool
	}{
		{name: "defaults to letter", wantWidth: 8.5, wantHeight: 11, wantBottom: 0.5},
		{name: "legal", opts: Options{PageSize: "Legal"}, wantWidth: 8.5, wantHeight: 14, wantBottom: 0.5},
		{name: "custom margin", opts: Options{MarginInches: 1}, wantWidth: 8.5, wantHeight: 11, wantBottom: 1},
		{
			name:       "footer enlarges bottom margin",
			opts:       Options{Footer: &Footer{ShowPageNumber: true}},
			wantWidth:  8.5,
			wantHeight: 11,
			wantBottom: 0.75,
			wantFooter: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := buildPDFOptions(tt.opts)
			if err != nil {
				t.Fatalf("buildPDFOptions() unexpected error: %v", err)
			}
			if *got.PaperWidth != tt.wantWidth || *got.PaperHeight != tt.wantHeight {
				t.Errorf("paper = %vx%v, want %vx%v", *got.PaperWidth, *got.PaperHeight, tt.wantWidth, tt.wantHeight)
			}
			if *got.MarginBottom != tt.wantBottom {
				t.Errorf("MarginBottom = %v, want %v", *got.MarginBottom, tt.wantBottom)
			}
			if got.DisplayHeaderFooter != tt.wantFooter {
				t.Errorf("DisplayHeaderFooter = %v, want %v", got.DisplayHeaderFooter, tt.wantFooter)
			}
			if !got.PrintBackground {
				t.Error("PrintBackground = false, want true")
			}
		})
	}
}

func TestBuildFooterTemplate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		footer       *Footer
		wantContains []string
		wantExact    string
	}{
		{name: "nil footer", footer: nil, wantExact: emptyTemplate},
		{name: "nothing to show", footer: &Footer{}, wantExact: emptyTemplate},
		{
			name:         "page numbers",
			footer:       &Footer{ShowPageNumber: true},
			wantContains: []string{`class="pageNumber"`, `class="totalPages"`, "text-align: right"},
		},
		{
			name:         "escaped text on the left",
			footer:       &Footer{Text: "R&D <draft>", Position: "left"},
			wantContains: []string{"R&amp;D &lt;draft&gt;", "text-align: left"},
		},
		{
			name:         "joined parts",
			footer:       &Footer{ShowPageNumber: true, Text: "Guide", Position: "center"},
			wantContains: []string{"</span> - Guide", "text-align: center"},
		},
		{
			name:         "unknown position falls back to right",
			footer:       &Footer{Text: "x", Position: "top"},
			wantContains: []string{"text-align: right"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := buildFooterTemplate(tt.footer)
			if tt.wantExact != "" && got != tt.wantExact {
				t.Errorf("buildFooterTemplate() = %q, want %q", got, tt.wantExact)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("buildFooterTemplate() = %q, want to contain %q", got, want)
				}
			}
		})
	}
}

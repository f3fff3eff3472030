package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// TranscriptGenerator рендерит переписку в PDF.
type TranscriptGenerator interface {
	GenerateTranscript(data TranscriptData) (string, error)
}

// DocumentGenerator renders chat transcripts into RootDir.
type DocumentGenerator struct {
	RootDir  string // корень хранения, например "./files"
	FontPath string // путь до TTF, например "assets/fonts/DejaVuSans.ttf"
	fontName string
}

type TranscriptData struct {
	ChatID     string
	ChatName   string
	ExportedBy string
	ExportedAt time.Time
	Lines      []TranscriptLine
	Filename   string // имя файла без путей; пустое значение генерируется
}

type TranscriptLine struct {
	Author      string
	SentAt      time.Time
	Text        string
	Attachments []string
}

func NewDocumentGenerator(rootDir, fontPath string) *DocumentGenerator {
	return &DocumentGenerator{
		RootDir:  filepath.Clean(rootDir),
		FontPath: fontPath,
		fontName: "DejaVu",
	}
}

// GenerateTranscript writes the PDF and returns its path on disk.
func (g *DocumentGenerator) GenerateTranscript(data TranscriptData) (string, error) {
	filename := data.Filename
	if filename == "" {
		filename = fmt.Sprintf("chat_%s_%s.pdf", data.ChatID, data.ExportedAt.Format("20060102_150405"))
	}
	absPath, err := g.ensureTarget(filename)
	if err != nil {
		return "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Chat transcript: "+data.ChatName, true)
	pdf.SetAuthor("orgchat", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	font, tr := g.setupFont(pdf)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(font, "", 9)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont(font, "B", 16)
	pdf.CellFormat(0, 10, tr(data.ChatName), "", 1, "C", false, 0, "")
	pdf.SetFont(font, "", 10)
	sub := fmt.Sprintf("Exported %s", data.ExportedAt.Format("02.01.2006 15:04"))
	if data.ExportedBy != "" {
		sub += " by " + data.ExportedBy
	}
	pdf.CellFormat(0, 6, tr(sub), "", 1, "C", false, 0, "")
	hr(pdf)

	if len(data.Lines) == 0 {
		pdf.SetFont(font, "", 11)
		pdf.CellFormat(0, 8, "No messages.", "", 1, "L", false, 0, "")
	}
	for _, l := range data.Lines {
		pdf.SetFont(font, "B", 10)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s  %s", l.Author, l.SentAt.Format("02.01.2006 15:04"))), "", 1, "L", false, 0, "")
		pdf.SetFont(font, "", 11)
		if l.Text != "" {
			pdf.MultiCell(0, 6, tr(l.Text), "", "L", false)
		}
		if len(l.Attachments) > 0 {
			pdf.SetFont(font, "", 9)
			pdf.MultiCell(0, 5, tr("Attachments: "+strings.Join(l.Attachments, ", ")), "", "L", false)
		}
		pdf.Ln(2)
	}

	if err := pdf.OutputFileAndClose(absPath); err != nil {
		return "", err
	}
	return absPath, nil
}

func (g *DocumentGenerator) ensureTarget(filename string) (string, error) {
	if err := os.MkdirAll(g.RootDir, 0o755); err != nil {
		return "", fmt.Errorf("create files dir: %w", err)
	}
	filename = filepath.Base(filename) // безопасность
	return filepath.Join(g.RootDir, filename), nil
}

// setupFont registers the TTF when it exists, otherwise falls back to a core font.
func (g *DocumentGenerator) setupFont(pdf *gofpdf.Fpdf) (string, func(string) string) {
	if g.FontPath != "" {
		if _, err := os.Stat(g.FontPath); err == nil {
			pdf.AddUTF8Font(g.fontName, "", g.FontPath)
			pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
			return g.fontName, func(s string) string { return s }
		}
	}
	return "Helvetica", pdf.UnicodeTranslatorFromDescriptor("")
}

func hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}

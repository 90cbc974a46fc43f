package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"gys/internal/models"
)

const sheetName = "Gelinler"

var headers = []string{
	"Tarih", "Saat", "Gelin", "Makyaj", "Saç",
	"Anlaşılan Ücret", "Kapora", "Kalan", "Tel No", "Kına Günü", "Not",
}

// Exporter writes booking records to Excel files under a fixed directory.
type Exporter struct {
	dir    string
	logger *zerolog.Logger
}

func New(dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logger}
}

// Export writes one row per record, ordered as given, and returns the
// path of the created file.
func (e *Exporter) Export(gelinler []*models.Gelin, from, to string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for row, g := range gelinler {
		values := []interface{}{
			g.Tarih,
			g.Saat,
			g.Ad,
			g.MakyajPersonel,
			g.SacPersonel,
			feeCell(g.AnlasilanUcret),
			feeCell(g.Kapora),
			feeCell(g.Kalan),
			g.TelNo,
			g.KinaGunu,
			g.GelinNotu,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "B", 12)
	_ = f.SetColWidth(sheetName, "C", "E", 22)
	_ = f.SetColWidth(sheetName, "F", "H", 16)
	_ = f.SetColWidth(sheetName, "I", "K", 20)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("gelinler_%s_to_%s.xlsx", from, to)
	filePath := filepath.Join(e.dir, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("rows", len(gelinler)).Msg("excel file created")
	return filePath, nil
}

// feeCell renders the placeholder sentinel the way it appears in the
// calendar, an uppercase X.
func feeCell(v int) string {
	if v == models.FeeUnknown {
		return "X"
	}
	return strconv.Itoa(v)
}

package fileio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	xls "github.com/extrame/xls"
)

// максимальная ширина листа, которую просматриваем в .xls
const xlsScanCols = 256

// readXLS читает первый лист книги .xls, на котором есть данные.
func readXLS(r io.Reader, headerRow int) ([]map[string]string, error) {
	if headerRow <= 0 {
		return nil, errors.New("xls: headerRow must be 1-based")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	wb, err := openXLS(b)
	if err != nil {
		return nil, err
	}
	for i := 0; i < wb.NumSheets(); i++ {
		grid := sheetGrid(wb.GetSheet(i))
		if hasData(grid) {
			return rowsToMaps(grid, pickHeader(grid, headerRow), headerRow), nil
		}
	}
	return nil, nil
}

// openXLS: строки в старых выгрузках бывают не в UTF-8, пробуем по очереди.
func openXLS(b []byte) (*xls.WorkBook, error) {
	var errs []error
	for _, charset := range []string{"utf-8", "windows-1252"} {
		wb, err := xls.OpenReader(bytes.NewReader(b), charset)
		if err == nil && wb != nil {
			return wb, nil
		}
		if err == nil {
			err = errors.New("empty workbook")
		}
		errs = append(errs, fmt.Errorf("%s: %w", charset, err))
	}
	return nil, fmt.Errorf("xls: open workbook: %w", errors.Join(errs...))
}

// sheetGrid превращает лист в прямоугольную таблицу. Ширина: по самой правой
// непустой ячейке: Row.LastCol() в части выгрузок занижен.
func sheetGrid(sheet *xls.WorkSheet) [][]string {
	if sheet == nil {
		return nil
	}
	width := 0
	grid := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		cells := make([]string, xlsScanCols)
		if row := sheet.Row(i); row != nil {
			for j := range cells {
				cells[j] = normalizeCell(row.Col(j))
				if cells[j] != "" && j+1 > width {
					width = j + 1
				}
			}
		}
		grid = append(grid, cells)
	}
	for i := range grid {
		grid[i] = grid[i][:width]
	}
	return grid
}

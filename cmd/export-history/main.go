package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"skinvault/internal/database"
	"skinvault/internal/storage"

	"github.com/xuri/excelize/v2"
)

var (
	dbPath    = flag.String("db", "skinvault.db", "path to the local database")
	marketKey = flag.String("key", "", "market key to export (required)")
	days      = flag.Int("days", 30, "number of days of history to export")
	outFile   = flag.String("out", "history.xlsx", "output .xlsx file")
)

func main() {
	flag.Parse()

	if *marketKey == "" {
		log.Fatal("-key is required")
	}

	db, err := database.Initialize(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	store := storage.NewPriceStore(db)
	since := time.Now().AddDate(0, 0, -*days)
	points, err := store.History(*marketKey, since)
	if err != nil {
		log.Fatalf("Failed to load history: %v", err)
	}
	if len(points) == 0 {
		log.Fatalf("No history for %q in the last %d days", *marketKey, *days)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "History"
	f.SetSheetName("Sheet1", sheet)
	f.SetCellValue(sheet, "A1", "Timestamp")
	f.SetCellValue(sheet, "B1", "Price")

	for i, p := range points {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), p.Timestamp.Format("2006-01-02 15:04:05"))
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), p.Price)
	}

	if err := f.SaveAs(*outFile); err != nil {
		log.Fatalf("Failed to save %s: %v", *outFile, err)
	}

	log.Printf("Exported %d points for %q to %s", len(points), *marketKey, *outFile)
}

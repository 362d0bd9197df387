package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	postal "github.com/openvenues/gopostal/parser"
)

const version = "1.0.0"

// Pre-processes listing CSVs with libpostal before ingestion: the raw street
// field is parsed into components and a cleaned road string is appended, so
// the street-containment bonus fires on abbreviated or noisy addresses.
func main() {
	var (
		command = flag.String("cmd", "", "Command: test-parse, preprocess")
		address = flag.String("address", "", "Single address to test parsing")
		input   = flag.String("in", "", "Input CSV file")
		output  = flag.String("out", "", "Output CSV file")
		column  = flag.String("column", "street", "Header name of the address column")
	)
	flag.Parse()

	if *command == "" {
		printUsage()
		return
	}

	fmt.Printf("POI postal preprocessor v%s\n\n", version)

	switch *command {
	case "test-parse":
		if *address == "" {
			fmt.Println("Error: -address required for test-parse")
			return
		}
		testParse(*address)
	case "preprocess":
		if *input == "" || *output == "" {
			fmt.Println("Error: -in and -out required for preprocess")
			return
		}
		if err := preprocess(*input, *output, *column); err != nil {
			log.Fatalf("Error: %v", err)
		}
	default:
		fmt.Printf("Unknown command: %s\n", *command)
		printUsage()
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  Test libpostal parsing:")
	fmt.Println("    ./postal-preprocessor -cmd=test-parse -address=\"12 Wardour St, Soho, London W1D 4AD\"")
	fmt.Println()
	fmt.Println("  Pre-process a listing CSV before import:")
	fmt.Println("    ./postal-preprocessor -cmd=preprocess -in=listings.csv -out=listings_clean.csv -column=street")
}

func testParse(address string) {
	fmt.Printf("Parsing: %s\n\n", address)
	for _, c := range postal.ParseAddress(address) {
		fmt.Printf("  %-15s %s\n", c.Label+":", c.Value)
	}
	fmt.Printf("\nCleaned road: %q\n", cleanedStreet(address))
}

// cleanedStreet extracts the road (plus house number, when present) from a
// raw address string.
func cleanedStreet(raw string) string {
	var houseNumber, road string
	for _, c := range postal.ParseAddress(raw) {
		switch c.Label {
		case "house_number":
			houseNumber = c.Value
		case "road":
			road = c.Value
		}
	}
	if road == "" {
		return strings.TrimSpace(raw)
	}
	if houseNumber != "" {
		return houseNumber + " " + road
	}
	return road
}

func preprocess(input, output, column string) error {
	in, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer out.Close()

	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	writer := csv.NewWriter(out)

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	addrCol := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), column) {
			addrCol = i
			break
		}
	}
	if addrCol < 0 {
		return fmt.Errorf("column %q not found in header", column)
	}

	if err := writer.Write(append(header, column+"_clean")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	processed := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}

		clean := ""
		if addrCol < len(record) && record[addrCol] != "" {
			clean = cleanedStreet(record[addrCol])
		}
		if err := writer.Write(append(record, clean)); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}

		processed++
		if processed%1000 == 0 {
			fmt.Printf("  Processed %d records...\n", processed)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	fmt.Printf("Processed %d records -> %s\n", processed, output)
	return nil
}

package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"nexuscalc/internal/core/ledger"

	"gopkg.in/yaml.v3"
)

// readTransactions loads ledger rows from a .json, .yaml/.yml or .csv file; "-" reads JSON from stdin.
// JSON may be a bare array or an object with a transactions field
func readTransactions(path string) ([]ledger.Raw, error) {
	var (
		r   io.Reader
		ext = strings.ToLower(filepath.Ext(path))
	)
	if path == "-" {
		r, ext = os.Stdin, ".json"
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	switch ext {
	case ".json":
		return decodeJSON(r)
	case ".yaml", ".yml":
		var rows []ledger.Raw
		if err := yaml.NewDecoder(r).Decode(&rows); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return rows, nil
	case ".csv":
		return decodeCSV(r)
	}
	return nil, fmt.Errorf("unsupported input %q: use .json, .yaml or .csv", path)
}

func decodeJSON(r io.Reader) ([]ledger.Raw, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var rows []ledger.Raw
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("decode transactions: %w", err)
		}
		return rows, nil
	}
	var wrapped struct {
		Transactions []ledger.Raw `json:"transactions"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	return wrapped.Transactions, nil
}

// decodeCSV reads a header row naming the ledger.Raw json fields; unknown columns are ignored
func decodeCSV(r io.Reader) ([]ledger.Raw, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range []string{"date", "jurisdiction", "gross_amount"} {
		if _, ok := col[req]; !ok {
			return nil, fmt.Errorf("csv is missing the %s column", req)
		}
	}

	var rows []ledger.Raw
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		get := func(name string) string {
			if i, ok := col[name]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		raw := ledger.Raw{
			ID:           get("id"),
			Date:         get("date"),
			Jurisdiction: get("jurisdiction"),
			Gross:        get("gross_amount"),
			Channel:      get("channel"),
		}
		if v := get("is_taxable"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("csv line %d: is_taxable %q is not a boolean", line, v)
			}
			raw.IsTaxable = &b
		}
		if v := get("exempt_amount"); v != "" {
			raw.ExemptAmount = &v
		}
		rows = append(rows, raw)
	}
}

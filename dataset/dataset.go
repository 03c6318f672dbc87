// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dataset reads the symptom and precaution CSV files.
//
// Both files start with a header row. The symptom file has a Disease column
// and Symptom_1 .. Symptom_N columns; the precaution file has a Disease column
// and any number of columns whose name starts with "precaution" in any case.
// Rows may be ragged; missing cells read as blank.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/poiesic/diseasekb/core"
)

const (
	// DiseaseColumn is the required key column of both files.
	DiseaseColumn = "Disease"

	// DefaultMaxSymptomColumns is the highest Symptom_<n> column read by default.
	DefaultMaxSymptomColumns = 17

	symptomPrefix    = "Symptom_"
	precautionPrefix = "precaution"
)

// LoadSymptoms reads the symptom file at path.
func LoadSymptoms(path string, maxSymptomColumns int) ([]core.DiseaseRecord, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSymptoms(f, maxSymptomColumns)
}

// ReadSymptoms parses a symptom CSV. Only Symptom_<n> columns with
// 1 <= n <= maxSymptomColumns are read, in order of n.
func ReadSymptoms(r io.Reader, maxSymptomColumns int) ([]core.DiseaseRecord, error) {
	if maxSymptomColumns <= 0 {
		return nil, fmt.Errorf("%w: max symptom columns must be positive, got %d", core.ErrConfiguration, maxSymptomColumns)
	}

	header, rows, err := readAll(r, "symptom")
	if err != nil {
		return nil, err
	}
	diseaseCol, err := diseaseColumn(header, "symptom")
	if err != nil {
		return nil, err
	}

	type slot struct{ n, col int }
	var slots []slot
	for col, name := range header {
		rest, ok := strings.CutPrefix(name, symptomPrefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 || n > maxSymptomColumns {
			continue
		}
		slots = append(slots, slot{n: n, col: col})
	}
	slices.SortStableFunc(slots, func(a, b slot) int { return a.n - b.n })

	records := make([]core.DiseaseRecord, len(rows))
	for i, row := range rows {
		symptoms := make([]string, len(slots))
		for j, s := range slots {
			symptoms[j] = cell(row, s.col)
		}
		records[i] = core.DiseaseRecord{Disease: cell(row, diseaseCol), Symptoms: symptoms}
	}
	return records, nil
}

// LoadPrecautions reads the precaution file at path.
func LoadPrecautions(path string) ([]core.PrecautionRecord, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadPrecautions(f)
}

// ReadPrecautions parses a precaution CSV. Every column whose name starts
// with "precaution", compared case-insensitively, is read in header order.
func ReadPrecautions(r io.Reader) ([]core.PrecautionRecord, error) {
	header, rows, err := readAll(r, "precaution")
	if err != nil {
		return nil, err
	}
	diseaseCol, err := diseaseColumn(header, "precaution")
	if err != nil {
		return nil, err
	}

	var cols []int
	for col, name := range header {
		if strings.HasPrefix(strings.ToLower(name), precautionPrefix) {
			cols = append(cols, col)
		}
	}

	records := make([]core.PrecautionRecord, len(rows))
	for i, row := range rows {
		precautions := make([]string, len(cols))
		for j, col := range cols {
			precautions[j] = cell(row, col)
		}
		records[i] = core.PrecautionRecord{Disease: cell(row, diseaseCol), Precautions: precautions}
	}
	return records, nil
}

func open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open dataset: %w", core.ErrConfiguration, err)
	}
	return f, nil
}

func readAll(r io.Reader, kind string) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: %s dataset is empty", core.ErrConfiguration, kind)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read %s header: %w", core.ErrConfiguration, kind, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read %s rows: %w", core.ErrConfiguration, kind, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: %s dataset has no rows", core.ErrConfiguration, kind)
	}
	return header, rows, nil
}

func diseaseColumn(header []string, kind string) (int, error) {
	col := slices.Index(header, DiseaseColumn)
	if col < 0 {
		return 0, fmt.Errorf("%w: %s dataset has no %q column", core.ErrConfiguration, kind, DiseaseColumn)
	}
	return col, nil
}

func cell(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}

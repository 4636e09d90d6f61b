// Package dataset reads the optional CSV inputs of the platform and generates the
// synthetic LCA dataset used when no file is available.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"battery-platform/internal/models"
)

// LCA dataset columns
const (
	ColBinderType       = "Binder_Type"
	ColSolventType      = "Solvent_Type"
	ColBinderAmount     = "Binder_Amount_wt"
	ColGraphite         = "Graphite_wt"
	ColSuperP           = "SuperP_wt"
	ColCoatingThickness = "Coating_Thickness_mm"
	ColDryingTemp       = "Drying_Temp_C"
	ColDryingTime       = "Drying_Time_min"
	ColArealLoading     = "Areal_Mass_Loading_g_m2"
	ColCO2              = "CO2_kg_per_m2"
	ColEnergy           = "Energy_kWh_per_m2"
	ColVOC              = "VOC_g_per_m2"
)

// LCAColumns is the header written by WriteLCACSV
var LCAColumns = []string{
	ColBinderType, ColSolventType, ColBinderAmount, ColGraphite, ColSuperP,
	ColCoatingThickness, ColDryingTemp, ColDryingTime, ColArealLoading,
	ColCO2, ColEnergy, ColVOC,
}

// ReadLCACSV parses an LCA dataset. Columns are matched by header name in any order;
// all of LCAColumns are required. The first bad row fails the whole file.
func ReadLCACSV(r io.Reader) ([]models.LCARecord, error) {
	records, rowErrs, err := ScanLCACSV(r)
	if err != nil {
		return nil, err
	}
	if len(rowErrs) > 0 {
		return nil, rowErrs[0]
	}
	return records, nil
}

// ScanLCACSV parses an LCA dataset like ReadLCACSV but skips rows that cannot be
// converted and reports them individually. A broken header fails the whole file.
func ScanLCACSV(r io.Reader) ([]models.LCARecord, []RowError, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read LCA header: %w", err)
	}
	index, err := columnIndex(header, LCAColumns)
	if err != nil {
		return nil, nil, err
	}

	var (
		records []models.LCARecord
		rowErrs []RowError
	)
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}

		rec, err := lcaRecord(row, index)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}
		records = append(records, *rec)
	}

	return records, rowErrs, nil
}

func lcaRecord(row []string, index map[string]int) (*models.LCARecord, error) {
	solvent, err := models.ParseSolvent(row[index[ColSolventType]])
	if err != nil {
		return nil, err
	}

	rec := &models.LCARecord{
		Binder:    models.ParseBinder(row[index[ColBinderType]]),
		Solvent:   solvent,
		CreatedAt: time.Now().UTC(),
	}
	numeric := []struct {
		col string
		dst *float64
	}{
		{ColBinderAmount, &rec.BinderAmountWt},
		{ColGraphite, &rec.GraphiteWt},
		{ColSuperP, &rec.SuperPWt},
		{ColCoatingThickness, &rec.CoatingThicknessMM},
		{ColDryingTemp, &rec.DryingTempC},
		{ColDryingTime, &rec.DryingTimeMin},
		{ColArealLoading, &rec.ArealLoading},
		{ColCO2, &rec.CO2KgPerM2},
		{ColEnergy, &rec.EnergyKWhPerM2},
		{ColVOC, &rec.VOCGPerM2},
	}
	for _, n := range numeric {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[index[n.col]]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", n.col, err)
		}
		*n.dst = v
	}
	return rec, nil
}

// WriteLCACSV writes records with the standard header
func WriteLCACSV(w io.Writer, records []models.LCARecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(LCAColumns); err != nil {
		return err
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, r := range records {
		row := []string{
			string(r.Binder), string(r.Solvent),
			f(r.BinderAmountWt), f(r.GraphiteWt), f(r.SuperPWt), f(r.CoatingThicknessMM),
			f(r.DryingTempC), f(r.DryingTimeMin), f(r.ArealLoading),
			f(r.CO2KgPerM2), f(r.EnergyKWhPerM2), f(r.VOCGPerM2),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// LoadLCA reads the dataset at path. A missing file is not an error: the synthetic
// dataset is returned instead and synthetic is true.
func LoadLCA(path string, src rand.Source) (records []models.LCARecord, synthetic bool, err error) {
	if path == "" {
		return SyntheticLCA(src), true, nil
	}

	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return SyntheticLCA(src), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to open LCA dataset: %w", err)
	}
	defer file.Close()

	records, err = ReadLCACSV(file)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse LCA dataset %s: %w", path, err)
	}
	return records, false, nil
}

// SyntheticGroupSize is the number of rows per binder group in the synthetic dataset
const SyntheticGroupSize = 50

// SyntheticLCA generates the demo dataset: 50 PVDF/NMP, 50 CMGG/Water and
// 50 GG/Water rows with uniform process values. Columns are drawn one at a time
// across all rows, in header order.
func SyntheticLCA(src rand.Source) []models.LCARecord {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	groups := []struct {
		binder  models.BinderType
		solvent models.SolventType
	}{
		{models.BinderPVDF, models.SolventNMP},
		{models.BinderCMGG, models.SolventWater},
		{models.BinderGG, models.SolventWater},
	}

	n := SyntheticGroupSize * len(groups)
	records := make([]models.LCARecord, n)
	now := time.Now().UTC()
	for i := range records {
		g := groups[i/SyntheticGroupSize]
		records[i].Binder = g.binder
		records[i].Solvent = g.solvent
		records[i].CreatedAt = now
	}

	fill := func(lo, hi float64, from, to int, set func(*models.LCARecord, float64)) {
		u := distuv.Uniform{Min: lo, Max: hi, Src: src}
		for i := from; i < to; i++ {
			set(&records[i], u.Rand())
		}
	}

	fill(1, 5, 0, n, func(r *models.LCARecord, v float64) { r.BinderAmountWt = v })
	fill(90, 98, 0, n, func(r *models.LCARecord, v float64) { r.GraphiteWt = v })
	fill(0.5, 2, 0, n, func(r *models.LCARecord, v float64) { r.SuperPWt = v })
	fill(0.05, 0.2, 0, n, func(r *models.LCARecord, v float64) { r.CoatingThicknessMM = v })
	fill(80, 150, 0, n, func(r *models.LCARecord, v float64) { r.DryingTempC = v })
	fill(10, 60, 0, n, func(r *models.LCARecord, v float64) { r.DryingTimeMin = v })
	fill(5, 15, 0, n, func(r *models.LCARecord, v float64) { r.ArealLoading = v })

	// Targets: the NMP group is the dirty baseline, the aqueous groups are clean
	fill(0.2, 0.3, 0, SyntheticGroupSize, func(r *models.LCARecord, v float64) { r.CO2KgPerM2 = v })
	fill(0.05, 0.1, SyntheticGroupSize, n, func(r *models.LCARecord, v float64) { r.CO2KgPerM2 = v })
	fill(0.5, 0.7, 0, SyntheticGroupSize, func(r *models.LCARecord, v float64) { r.EnergyKWhPerM2 = v })
	fill(0.1, 0.2, SyntheticGroupSize, n, func(r *models.LCARecord, v float64) { r.EnergyKWhPerM2 = v })
	fill(2.8, 3.2, 0, SyntheticGroupSize, func(r *models.LCARecord, v float64) { r.VOCGPerM2 = v })

	return records
}

// columnIndex maps required column names to their position, case-insensitively
func columnIndex(header []string, required []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		positions[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}

	index := make(map[string]int, len(required))
	var missing []string
	for _, col := range required {
		pos, ok := positions[strings.ToLower(col)]
		if !ok {
			missing = append(missing, col)
			continue
		}
		index[col] = pos
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return index, nil
}

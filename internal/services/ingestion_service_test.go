package services

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battery-platform/internal/dataset"
	"battery-platform/internal/models"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func writeLCAFile(t *testing.T, dir, name string, rows int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, dataset.WriteLCACSV(&buf, dataset.SyntheticLCA(rand.NewPCG(4, 4))[:rows]))
	return writeFile(t, dir, name, buf.String())
}

const validationCSV = "sample_id,cycle,capacity,type\n" +
	"A,1,1.00,history\n" +
	"A,2,0.99,history\n" +
	"A,1,1.01,prediction\n" +
	"A,x,0.99,prediction\n" +
	"B,1,0.97,measured\n"

func TestDetectDataset(t *testing.T) {
	dir := t.TempDir()

	kind, err := DetectDataset(writeLCAFile(t, dir, "lca.csv", 1))
	require.NoError(t, err)
	assert.Equal(t, DatasetLCA, kind)

	kind, err = DetectDataset(writeFile(t, dir, "cells.csv", validationCSV))
	require.NoError(t, err)
	assert.Equal(t, DatasetValidation, kind)

	_, err = DetectDataset(writeFile(t, dir, "empty.csv", ""))
	assert.Error(t, err)

	_, err = DetectDataset(filepath.Join(dir, "absent.csv"))
	assert.Error(t, err)
}

func TestIngestionService_IngestDirectory(t *testing.T) {
	logger, collector := newTestObservability(t)
	repo := &memoryRepository{}
	svc := NewIngestionService(repo, logger, collector)

	dir := t.TempDir()
	writeLCAFile(t, dir, "lca.csv", 7)
	writeFile(t, dir, "cells.csv", validationCSV)
	writeFile(t, dir, "broken.csv", "sample_id,cycle\nA,1\n")
	writeFile(t, dir, "notes.txt", "ignored")

	result, err := svc.IngestDirectory(context.Background(), dir, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalFiles)
	assert.Equal(t, 7+5, result.TotalRecords)
	assert.Equal(t, 7+4, result.SuccessfulRecords)
	assert.Equal(t, 1, result.FailedRecords)
	assert.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "broken.csv")

	require.Len(t, result.BatchIDs, 2)
	for _, id := range result.BatchIDs {
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	}

	assert.Len(t, repo.lca, 7)
	require.Len(t, repo.validation, 4)
	assert.NotEmpty(t, repo.validation[0].BatchID)
	assert.Equal(t, repo.validation[0].BatchID, repo.validation[3].BatchID)
	assert.Equal(t, models.KindHistory, repo.validation[3].Kind)
}

func TestIngestionService_Errors(t *testing.T) {
	logger, collector := newTestObservability(t)
	ctx := context.Background()

	_, err := NewIngestionService(&memoryRepository{}, logger, collector).IngestDirectory(ctx, t.TempDir(), 10)
	assert.Error(t, err)

	_, err = NewIngestionService(&memoryRepository{}, logger, collector).IngestFiles(ctx, nil, 0)
	var argErr *models.InvalidArgumentError
	assert.ErrorAs(t, err, &argErr)

	failing := NewIngestionService(&memoryRepository{failWith: errors.New("disk full")}, logger, collector)
	path := writeLCAFile(t, t.TempDir(), "lca.csv", 2)
	_, err = failing.IngestFile(ctx, path, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestIngestionService_PartialBatchFailure(t *testing.T) {
	logger, collector := newTestObservability(t)
	ctx := context.Background()
	path := writeLCAFile(t, t.TempDir(), "lca.csv", 7)

	repo := &memoryRepository{failOnBatch: 2}
	result, err := NewIngestionService(repo, logger, collector).IngestFile(ctx, path, 3)
	require.ErrorIs(t, err, errBatchRejected)
	require.NotNil(t, result)
	assert.Equal(t, 7, result.TotalRecords)
	assert.Equal(t, 3, result.SuccessfulRecords)
	assert.Equal(t, 4, result.FailedRecords)
	assert.Len(t, repo.lca, 3)

	repo = &memoryRepository{failOnBatch: 2}
	summary, err := NewIngestionService(repo, logger, collector).IngestFiles(ctx, []string{path}, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, summary.TotalRecords)
	assert.Equal(t, 3, summary.SuccessfulRecords)
	assert.Equal(t, 4, summary.FailedRecords)
	assert.Len(t, summary.BatchIDs, 1)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "batch rejected")
}

func TestIngestionService_SkipsBadLCARows(t *testing.T) {
	logger, collector := newTestObservability(t)

	var buf bytes.Buffer
	require.NoError(t, dataset.WriteLCACSV(&buf, dataset.SyntheticLCA(rand.NewPCG(4, 4))[:3]))
	buf.WriteString("PVDF,NMP,two,96,1,0.1,120,30,10,0.2,0.6,3\n")
	path := writeFile(t, t.TempDir(), "lca.csv", buf.String())

	repo := &memoryRepository{}
	result, err := NewIngestionService(repo, logger, collector).IngestFile(context.Background(), path, 10)
	require.NoError(t, err)
	assert.Equal(t, DatasetLCA, result.Dataset)
	assert.Equal(t, 4, result.TotalRecords)
	assert.Equal(t, 3, result.SuccessfulRecords)
	assert.Equal(t, 1, result.FailedRecords)
	assert.Len(t, repo.lca, 3)
}

func TestIngestionService_SeedValidation(t *testing.T) {
	logger, collector := newTestObservability(t)
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "validation.csv", validationCSV)

	repo := &memoryRepository{}
	svc := NewIngestionService(repo, logger, collector)

	result, err := svc.SeedValidation(ctx, "", 10)
	require.NoError(t, err)
	assert.Nil(t, result)

	result, err = svc.SeedValidation(ctx, filepath.Join(dir, "absent.csv"), 10)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Empty(t, repo.validation)

	result, err = svc.SeedValidation(ctx, path, 10)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, DatasetValidation, result.Dataset)
	assert.Equal(t, 4, result.SuccessfulRecords)
	assert.Len(t, repo.validation, 4)

	// Existing samples are left alone
	result, err = svc.SeedValidation(ctx, path, 10)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Len(t, repo.validation, 4)

	_, err = NewIngestionService(&memoryRepository{}, logger, collector).SeedValidation(ctx, writeLCAFile(t, dir, "lca.csv", 2), 10)
	assert.Error(t, err)

	_, err = NewIngestionService(&memoryRepository{failWith: errors.New("db down")}, logger, collector).SeedValidation(ctx, path, 10)
	assert.Error(t, err)
}

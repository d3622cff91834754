package application

import (
	"context"
	"encoding/json"
	"fmt"

	"a11ydash/domain/accessibility"
	"a11ydash/domain/contracts"
	"a11ydash/logging"
)

// ExportDocument is the transferable serialization of the durable store:
// every task and every result, with no ordering dependency between them.
type ExportDocument struct {
	Tasks   []*accessibility.Task   `json:"tasks"`
	Results []*accessibility.Result `json:"results"`
}

// ExportService serializes the durable store to a document and restores
// a document back into it.
type ExportService struct {
	durable contracts.DurableStore
	logger  *logging.Logger
}

// NewExportService creates an export/import utility over the durable store.
func NewExportService(durable contracts.DurableStore) *ExportService {
	return &ExportService{
		durable: durable,
		logger:  logging.Default().WithComponent("export_service"),
	}
}

// Export scans both tables into a document. Slices are always non-nil so
// an empty store exports as {"tasks":[],"results":[]} and the
// export-import-export round trip is byte-stable.
func (s *ExportService) Export(ctx context.Context) (*ExportDocument, error) {
	tasks, err := s.durable.GetTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("export tasks: %w", err)
	}
	results, err := s.durable.GetResults(ctx)
	if err != nil {
		return nil, fmt.Errorf("export results: %w", err)
	}

	doc := &ExportDocument{Tasks: tasks, Results: results}
	if doc.Tasks == nil {
		doc.Tasks = []*accessibility.Task{}
	}
	if doc.Results == nil {
		doc.Results = []*accessibility.Result{}
	}
	return doc, nil
}

// ExportJSON serializes the export document as indented JSON.
func (s *ExportService) ExportJSON(ctx context.Context) ([]byte, error) {
	doc, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export document: %w", err)
	}
	return data, nil
}

// Import restores a document into the durable store. Every record is
// upserted independently; an existing record with the same id is
// overwritten entirely, never merged field by field. A document-level
// parse failure blocks everything; per-record failures are logged and
// the rest of the document still imports. Results whose task id matches
// no imported or existing task are stored as-is; they simply never
// display.
func (s *ExportService) Import(ctx context.Context, data []byte) (int, error) {
	var doc ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("%w: %w", contracts.ErrSerialization, err)
	}

	imported := 0
	for _, task := range doc.Tasks {
		if task == nil || task.ID == "" {
			s.logger.Warn("Skipping task record without id in import")
			continue
		}
		if err := s.durable.SaveTask(ctx, task); err != nil {
			s.logger.Error("Failed to import task record", "task_id", task.ID, "error", err)
			continue
		}
		imported++
	}
	for _, result := range doc.Results {
		if result == nil || result.ID == "" {
			s.logger.Warn("Skipping result record without id in import")
			continue
		}
		if err := s.durable.SaveResult(ctx, result); err != nil {
			s.logger.Error("Failed to import result record", "result_id", result.ID, "error", err)
			continue
		}
		imported++
	}

	s.logger.Info("Import finished", "records", imported)
	return imported, nil
}

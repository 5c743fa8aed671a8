package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/pipeline"
	"github.com/leadflow/backend/internal/repository"
)

const (
	exportDateLayout = "2006-01-02"
	exportMissing    = "N/A"
	exportSheet      = "Leads"
)

var exportHeaders = []string{
	"Account Name",
	"Stage",
	"Sector",
	"Owner Entity",
	"Contract Type",
	"Contract Start",
	"Contract End",
	"Amount",
}

type exportService struct {
	leadRepo   repository.LeadRepository
	stageRepo  repository.StageRepository
	entityRepo repository.EntityRepository
	audit      AuditService
}

// NewExportService creates a new lead export service
func NewExportService(
	leadRepo repository.LeadRepository,
	stageRepo repository.StageRepository,
	entityRepo repository.EntityRepository,
	auditService AuditService,
) ExportService {
	return &exportService{
		leadRepo:   leadRepo,
		stageRepo:  stageRepo,
		entityRepo: entityRepo,
		audit:      auditService,
	}
}

// rows resolves the visible leads into export rows
func (s *exportService) rows(ctx context.Context, actor *models.User) ([][]string, error) {
	stages, err := s.stageRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	leads, err := s.leadRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	entities, err := s.entityRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	entityNames := make(map[string]string, len(entities))
	for _, e := range entities {
		entityNames[e.ID] = e.Name
	}

	leads = visibilityFor(actor, stages).filter(leads)
	rows := make([][]string, 0, len(leads))
	for _, lead := range leads {
		stageName := exportMissing
		if stage, ok := pipeline.FindStage(lead.StageID, stages); ok {
			stageName = stage.Name
		}

		owner := exportMissing
		switch {
		case stageName == models.GlobalStageName:
			owner = models.GlobalStageName
		case entityNames[lead.OwnerEntityID] != "":
			owner = entityNames[lead.OwnerEntityID]
		}

		rows = append(rows, []string{
			lead.AccountName,
			stageName,
			lead.Sector,
			owner,
			string(lead.ContractType),
			exportDate(lead.ContractStartDate),
			exportDate(lead.ContractEndDate),
			decimal.NewFromFloat(lead.Amount).String(),
		})
	}
	return rows, nil
}

func exportDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(exportDateLayout)
}

func (s *exportService) ExportCSV(ctx context.Context, actor *models.User, w io.Writer) error {
	rows, err := s.rows(ctx, actor)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}

	s.audit.Record(ctx, actor, models.AuditExportLeads, nil, nil,
		map[string]any{"format": "csv", "count": len(rows)})
	return nil
}

func (s *exportService) ExportXLSX(ctx context.Context, actor *models.User, w io.Writer) error {
	rows, err := s.rows(ctx, actor)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	header := make([]any, len(exportHeaders))
	for i, h := range exportHeaders {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		// Amount is written as a number so spreadsheets can sum it
		if amount, err := decimal.NewFromString(row[len(row)-1]); err == nil {
			cells[len(row)-1] = amount.InexactFloat64()
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.audit.Record(ctx, actor, models.AuditExportLeads, nil, nil,
		map[string]any{"format": "xlsx", "count": len(rows)})
	return nil
}

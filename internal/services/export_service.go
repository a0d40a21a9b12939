package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dmis/internal/models"
	"dmis/internal/workflow"
	"dmis/pkg/errclass"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"
)

// ActionExport gates needs list exports.
const ActionExport = "export"

// ExportResult points at the uploaded artifacts for one needs list.
type ExportResult struct {
	NeedsListID uuid.UUID `json:"needs_list_id"`
	Version     int       `json:"version"`
	JSONObject  string    `json:"json_object"`
	PDFObject   string    `json:"pdf_object"`
	JSONURL     string    `json:"json_url"`
	PDFURL      string    `json:"pdf_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type ExportService interface {
	// Export renders an approved, in-progress or completed list as JSON and
	// PDF, uploads both and returns presigned download links.
	Export(ctx context.Context, listID, actorID uuid.UUID) (*ExportResult, error)
}

type exportService struct {
	needsLists NeedsListService
	warehouses WarehouseService
	store      ObjectStore
	checker    workflow.PermissionChecker
	bucket     string
	expiry     time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewExportService(needsLists NeedsListService, warehouses WarehouseService, store ObjectStore, checker workflow.PermissionChecker, bucket string, expiry time.Duration, logger *zap.Logger) ExportService {
	return &exportService{
		needsLists: needsLists,
		warehouses: warehouses,
		store:      store,
		checker:    checker,
		bucket:     bucket,
		expiry:     expiry,
		logger:     logger,
		now:        time.Now,
	}
}

func exportable(status models.NeedsListStatus) bool {
	switch status {
	case models.StatusApproved, models.StatusInProgress, models.StatusCompleted:
		return true
	}
	return false
}

func (s *exportService) Export(ctx context.Context, listID, actorID uuid.UUID) (*ExportResult, error) {
	if err := workflow.Authorize(ctx, s.checker, actorID, workflow.ResourceNeedsList, ActionExport); err != nil {
		return nil, err
	}

	list, err := s.needsLists.Get(ctx, listID)
	if err != nil {
		return nil, err
	}
	if !exportable(list.Status) {
		return nil, errclass.ErrInvalidStateTransition.WithMessagef("needs list %s in status %s cannot be exported", list.ID, list.Status)
	}

	warehouseName := list.WarehouseID.String()
	if w, err := s.warehouses.GetByID(ctx, list.WarehouseID); err == nil {
		warehouseName = w.Name
	} else {
		s.logger.Warn("export without warehouse name", zap.Stringer("warehouse_id", list.WarehouseID), zap.Error(err))
	}

	jsonBytes, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode needs list: %w", err)
	}
	pdfBytes, err := renderNeedsListPDF(list, warehouseName, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to render needs list pdf: %w", err)
	}

	if err := s.store.EnsureBucketExists(ctx, s.bucket); err != nil {
		return nil, fmt.Errorf("failed to prepare export bucket: %w", err)
	}

	base := fmt.Sprintf("needs-lists/%s/v%d", list.ID, list.Version)
	result := &ExportResult{
		NeedsListID: list.ID,
		Version:     list.Version,
		JSONObject:  base + ".json",
		PDFObject:   base + ".pdf",
		ExpiresAt:   s.now().UTC().Add(s.expiry),
	}

	if err := s.store.Upload(ctx, s.bucket, result.JSONObject, bytes.NewReader(jsonBytes), int64(len(jsonBytes)), "application/json"); err != nil {
		return nil, fmt.Errorf("failed to upload needs list json: %w", err)
	}
	if err := s.store.Upload(ctx, s.bucket, result.PDFObject, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), "application/pdf"); err != nil {
		return nil, fmt.Errorf("failed to upload needs list pdf: %w", err)
	}

	if result.JSONURL, err = s.store.GetPresignedURL(ctx, s.bucket, result.JSONObject, s.expiry); err != nil {
		return nil, fmt.Errorf("failed to presign needs list json: %w", err)
	}
	if result.PDFURL, err = s.store.GetPresignedURL(ctx, s.bucket, result.PDFObject, s.expiry); err != nil {
		return nil, fmt.Errorf("failed to presign needs list pdf: %w", err)
	}

	s.logger.Info("needs list exported",
		zap.Stringer("needs_list_id", list.ID),
		zap.Int("version", list.Version),
		zap.Stringer("actor_id", actorID),
	)
	return result, nil
}

// renderNeedsListPDF lays out the procurement hand-off document.
func renderNeedsListPDF(list *models.NeedsList, warehouseName string, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	marginX := 15.0
	marginY := 15.0
	pdf.SetMargins(marginX, marginY, marginX)
	pdf.SetAutoPageBreak(true, marginY)

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(33, 37, 41)
	pdf.SetXY(marginX, marginY)
	pdf.Cell(0, 10, "SUPPLY REPLENISHMENT NEEDS LIST")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	header := []string{
		fmt.Sprintf("Warehouse: %s", warehouseName),
		fmt.Sprintf("Needs list: %s (version %d)", list.ID, list.Version),
		fmt.Sprintf("Status: %s    Event phase: %s    Data freshness: %s", list.Status, list.EventPhase, list.FreshnessTier),
		fmt.Sprintf("Calculated: %s    Demand window: %dh    Planning window: %dh    Safety buffer: %s",
			list.CalculatedAt.Format("02-Jan-2006 15:04 MST"), list.DemandWindowHours, list.PlanningWindowHours, list.SafetyBufferMultiplier),
		fmt.Sprintf("Generated: %s", generatedAt.Format("02-Jan-2006 15:04 MST")),
	}
	for _, line := range header {
		pdf.Cell(0, 6, line)
		pdf.Ln(6)
	}
	pdf.Ln(4)

	headers := []string{"Item", "Severity", "Burn/h", "Source", "Available", "Required", "Gap", "Transfer (A)", "Donation (B)", "Procure (C)", "Adjusted"}
	colWidths := []float64{40, 22, 20, 22, 24, 24, 22, 26, 26, 24, 20}

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(240, 240, 240)
	for i, h := range headers {
		pdf.CellFormat(colWidths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 9)
	for _, item := range list.Items {
		adjusted := "-"
		if item.AdjustedQty != nil {
			adjusted = item.AdjustedQty.StringFixed(2)
		}
		cells := []string{
			item.ItemID.String()[:8],
			string(item.Severity),
			item.BurnRate.StringFixed(2),
			string(item.BurnRateSource),
			item.AvailableQty.StringFixed(2),
			item.RequiredQty.StringFixed(2),
			item.GapQty.StringFixed(2),
			item.HorizonAQty.StringFixed(2),
			item.HorizonBQty.StringFixed(2),
			item.HorizonCQty.StringFixed(2),
			adjusted,
		}
		for i, c := range cells {
			align := "R"
			if i == 0 || i == 1 || i == 3 {
				align = "L"
			}
			pdf.CellFormat(colWidths[i], 7, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	t := list.Totals
	pdf.Cell(0, 6, fmt.Sprintf("Lines: %d (critical %d, warning %d, watch %d, baseline-sourced %d)",
		t.LineCount, t.CriticalCount, t.WarningCount, t.WatchCount, t.BaselineLineCount))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Total gap: %s    Transfer: %s    Donation: %s    Procurement: %s",
		t.TotalGap.StringFixed(2), t.TotalHorizonA.StringFixed(2), t.TotalHorizonB.StringFixed(2), t.TotalHorizonC.StringFixed(2)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

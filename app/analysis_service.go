package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"datalens/domain/dataset"
	"datalens/internal"
	"datalens/internal/charts"
	"datalens/internal/config"
	"datalens/internal/errors"
	"datalens/internal/preview"
	"datalens/internal/render"
	"datalens/internal/session"
	"datalens/internal/tabs"
	"datalens/ports"
)

// AnalysisService orchestrates the upload flow and filter re-analysis. It owns
// the reset-then-seed sequence: destroy live charts, clear the session, upload,
// then install the fresh descriptor and render the default views.
type AnalysisService struct {
	transfer ports.TransferPort
	store    *session.Store
	registry *charts.Registry
	pipeline *render.Pipeline
	tabs     *tabs.Controller
	cfg      *config.Config
	log      *internal.Logger
}

// NewAnalysisService creates an analysis service
func NewAnalysisService(
	transferPort ports.TransferPort,
	store *session.Store,
	registry *charts.Registry,
	pipeline *render.Pipeline,
	controller *tabs.Controller,
	cfg *config.Config,
) *AnalysisService {
	return &AnalysisService{
		transfer: transferPort,
		store:    store,
		registry: registry,
		pipeline: pipeline,
		tabs:     controller,
		cfg:      cfg,
		log:      internal.DefaultLogger.WithTag("app"),
	}
}

// UploadOutcome is the result of a completed upload flow
type UploadOutcome struct {
	Descriptor       *dataset.Descriptor
	PreviewColumns   []string
	OverviewFragment string
}

// UploadFile runs the full upload flow. Validation failures surface before any
// network traffic; on transfer failure the previous session stays cleared so no
// stale dataset can leak into new renders.
func (s *AnalysisService) UploadFile(ctx context.Context, filename string, size int64, r io.Reader) (*UploadOutcome, error) {
	// 1. Validate locally before touching the network
	if !s.extensionAllowed(filename) {
		return nil, errors.UnsupportedFileType(filename)
	}
	if size > s.cfg.Upload.MaxSizeBytes {
		return nil, errors.New(errors.CodeUnsupportedFileType,
			fmt.Sprintf("file exceeds the %dMB upload limit", s.cfg.Upload.MaxSizeBytes/(1<<20)))
	}

	data, err := io.ReadAll(io.LimitReader(r, s.cfg.Upload.MaxSizeBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "could not read upload")
	}
	if int64(len(data)) > s.cfg.Upload.MaxSizeBytes {
		return nil, errors.New(errors.CodeUnsupportedFileType,
			fmt.Sprintf("file exceeds the %dMB upload limit", s.cfg.Upload.MaxSizeBytes/(1<<20)))
	}

	// 2. Sniff the header locally so the UI can show the shape immediately.
	// Sniffing is best effort; the backend's column list is authoritative.
	previewCols, err := preview.Columns(filename, data)
	if err != nil {
		s.log.Warn("header sniff failed for %s: %v", filename, err)
		previewCols = nil
	}

	// 3. Reset: live charts destroyed, tabs back to inactive, session cleared
	s.registry.ReleaseAll()
	s.tabs.Reset()
	s.store.Clear()

	// 4. Transfer
	res, err := s.transfer.Upload(ctx, filename, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	// 5. Seed the session with the backend's view of the dataset
	desc := &dataset.Descriptor{
		FileID:      res.FileID,
		Filename:    res.Filename,
		Columns:     res.Columns,
		ColumnCount: len(res.Columns),
		Analysis:    res.Analysis,
	}
	if desc.Analysis == nil {
		desc.Analysis, err = s.fetchReport(ctx, desc.FileID)
		if err != nil {
			s.log.Warn("could not backfill analysis report: %v", err)
		}
	}
	if desc.Analysis != nil && desc.Analysis.BasicStatistics != nil && len(desc.Analysis.BasicStatistics.Shape) > 0 {
		desc.RowCount = desc.Analysis.BasicStatistics.Shape[0]
	}
	s.store.Set(desc)

	// 6. Default render: overview statistics plus the type distribution chart
	outcome := &UploadOutcome{Descriptor: desc, PreviewColumns: previewCols}
	if desc.Analysis != nil && desc.Analysis.BasicStatistics != nil {
		outcome.OverviewFragment = s.pipeline.Statistics(desc.Analysis.BasicStatistics, desc)
		if desc.Analysis.BasicStatistics.DataTypes != nil {
			if err := s.pipeline.Distribution(desc.Analysis.BasicStatistics.DataTypes); err != nil {
				s.log.Warn("distribution chart skipped: %v", err)
			}
		}
	}
	return outcome, nil
}

// fetchReport assembles a minimal report when the upload response carried
// none. The two sections load concurrently.
func (s *AnalysisService) fetchReport(ctx context.Context, fileID string) (*dataset.AnalysisReport, error) {
	report := &dataset.AnalysisReport{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := s.transfer.Analyze(ctx, ports.AnalyzeRequest{Operation: ports.OpBasicStats, FileID: fileID})
		if err != nil {
			return err
		}
		var stats dataset.BasicStats
		if err := json.Unmarshal(raw, &stats); err != nil {
			return errors.Decode(err)
		}
		report.BasicStatistics = &stats
		return nil
	})
	g.Go(func() error {
		raw, err := s.transfer.Analyze(ctx, ports.AnalyzeRequest{Operation: ports.OpDataQuality, FileID: fileID})
		if err != nil {
			return err
		}
		var quality dataset.DataQualityReport
		if err := json.Unmarshal(raw, &quality); err != nil {
			return errors.Decode(err)
		}
		report.DataQuality = &quality
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

// filterPayload is the result shape of the filter operation: a refreshed
// descriptor the client swaps in wholesale.
type filterPayload struct {
	AvailableColumns []string                `json:"available_columns"`
	RowCount         int                     `json:"row_count"`
	ColumnCount      int                     `json:"column_count"`
	Analysis         *dataset.AnalysisReport `json:"analysis"`
}

// FilterParams is a user-requested re-analysis: an optional column subset
// plus optional value bounds on one column.
type FilterParams struct {
	Columns  []string
	Column   string
	MinValue string
	MaxValue string
}

// validate catches user mistakes before any network traffic
func (p FilterParams) validate() error {
	if (p.MinValue != "" || p.MaxValue != "") && p.Column == "" {
		return errors.New(errors.CodeInsufficientData, "a value bound needs a filter column")
	}
	if p.Column != "" && p.MinValue == "" && p.MaxValue == "" {
		return errors.New(errors.CodeInsufficientData,
			fmt.Sprintf("missing filter value for column %q", p.Column))
	}
	return nil
}

// ApplyFilter re-analyzes under the filter, replaces the session descriptor
// wholesale and reloads only the active tab. Other loaded tabs are
// invalidated and re-fetch lazily on their next activation.
func (s *AnalysisService) ApplyFilter(ctx context.Context, params FilterParams, activeTab tabs.Tab) (*tabs.View, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	desc, err := s.store.Require()
	if err != nil {
		return nil, err
	}

	raw, err := s.transfer.Analyze(ctx, ports.AnalyzeRequest{
		Operation: ports.OpFilter,
		FileID:    desc.FileID,
		Columns:   params.Columns,
		Column:    params.Column,
		MinValue:  params.MinValue,
		MaxValue:  params.MaxValue,
	})
	if err != nil {
		return nil, err
	}
	var payload filterPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.Decode(err)
	}

	s.store.Set(&dataset.Descriptor{
		FileID:      desc.FileID,
		Filename:    desc.Filename,
		Columns:     payload.AvailableColumns,
		RowCount:    payload.RowCount,
		ColumnCount: payload.ColumnCount,
		Analysis:    payload.Analysis,
	})

	s.tabs.SetFilter(params.Columns)
	return s.tabs.Refresh(ctx, activeTab)
}

func (s *AnalysisService) extensionAllowed(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range s.cfg.Upload.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

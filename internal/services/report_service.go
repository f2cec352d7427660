package services

import (
	"encoding/json"

	"quasarcli/internal/analytics"
	"quasarcli/internal/dataset"
	"quasarcli/internal/errors"
	"quasarcli/pkg/contracts/domain"
)

// Report is the full analytical output of one loaded dataset.
type Report struct {
	Categories  []domain.CategoryPeriodAggregate `json:"agg_categoria_periodo"`
	TopProducts []domain.TopProducts             `json:"top3_por_receita"`
	Audit       []domain.MonthAudit              `json:"auditoria"`
	MonthTotals []domain.MonthTotal              `json:"totais_por_mes"`
	LatestYear  string                           `json:"ultimo_ano,omitempty"`
	LatestMonth string                           `json:"ultimo_mes,omitempty"`
	Rows        int                              `json:"linhas"`
}

// BuildReport computes every aggregate over the currently loaded dataset.
func (s *LoaderService) BuildReport() (Report, error) {
	txns := s.Transactions()
	if len(txns) == 0 {
		return Report{}, errors.NewNotFoundError("no data loaded", nil)
	}

	report := Report{
		Categories:  s.aggregator.AggregateByCategory(txns),
		TopProducts: s.aggregator.TopByRevenue(txns, 3),
		Audit:       analytics.AuditMonths(txns),
		MonthTotals: analytics.MonthTotals(txns),
		Rows:        len(txns),
	}
	if year, month, ok := analytics.LatestPeriod(txns); ok {
		report.LatestYear = year
		report.LatestMonth = month
	}
	return report, nil
}

// ReportJSON renders the report as indented JSON.
func (s *LoaderService) ReportJSON() ([]byte, error) {
	report, err := s.BuildReport()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(report, "", "  ")
}

// RawContext serializes the loaded raw worksheets into delimited text blocks.
func (s *LoaderService) RawContext(layer string, rowsPerSheet int, format string, maxChars int) string {
	return s.data.BuildRawContext(layer, rowsPerSheet, format, maxChars)
}

// PeriodContext serializes all normalized rows of one period. With an empty
// year the most recent year for the month is used; with both empty, the most
// recent period overall.
func (s *LoaderService) PeriodContext(year, monthNum, format string, maxChars int) string {
	txns := s.Transactions()
	if len(txns) == 0 {
		return ""
	}
	if monthNum != "" && year == "" {
		if y, ok := analytics.LatestYearForMonth(txns, monthNum); ok {
			year = y
		}
	}
	if year == "" || monthNum == "" {
		y, m, ok := analytics.LatestPeriod(txns)
		if !ok {
			return ""
		}
		year, monthNum = y, m
	}
	return dataset.BuildPeriodContext(txns, year, monthNum, format, maxChars)
}

package httpapi

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"wisefido-apnea/internal/models"
)

// EventsCSVHeader 事件导出表头
var EventsCSVHeader = []string{
	"Type",
	"Start (s)",
	"End (s)",
	"Duration (s)",
	"Confidence",
	"Level",
	"Start (clock)",
	"End (clock)",
}

// GenerateEventsCSV 生成事件列表 CSV
// 设置了拍摄开始时刻时附带时钟时刻列，否则留空
func GenerateEventsCSV(job *models.Job, results *models.AnalysisResults) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(EventsCSVHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, e := range results.Events {
		if err := w.Write(eventRow(job, e)); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func eventRow(job *models.Job, e models.Event) []string {
	startClock, endClock := "", ""
	if job.RecordingStartDatetime != nil {
		if base, err := time.Parse(time.RFC3339, *job.RecordingStartDatetime); err == nil {
			startClock = base.Add(time.Duration(e.Start * float64(time.Second))).Format("15:04:05")
			endClock = base.Add(time.Duration(e.End * float64(time.Second))).Format("15:04:05")
		}
	}
	confidence, level := "", ""
	if e.Kind == models.EventApnea {
		confidence = strconv.FormatFloat(e.Confidence, 'f', 3, 64)
	}
	if e.Kind == models.EventSnore {
		level = strconv.FormatFloat(e.Level, 'f', 3, 64)
	}
	return []string{
		string(e.Kind),
		strconv.FormatFloat(e.Start, 'f', 2, 64),
		strconv.FormatFloat(e.End, 'f', 2, 64),
		strconv.FormatFloat(e.Duration(), 'f', 2, 64),
		confidence,
		level,
		startClock,
		endClock,
	}
}

// GenerateReportExcel 生成解析报告 Excel（サマリ + 事件列表两个工作表）
func GenerateReportExcel(job *models.Job, results *models.AnalysisResults) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	summarySheet := "Summary"
	index, err := f.NewSheet(summarySheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	summaryRows := [][]any{
		{"Job ID", job.JobID},
		{"Name", job.Name},
		{"Analyzed At", job.CreatedAt.Format(time.RFC3339)},
		{"Rule Version", results.Version},
		{"Duration (s)", results.DurationSec},
		{"Recording Hours", results.Summary.RecordingHours},
		{"Apnea Count", results.Summary.ApneaCount},
		{"Apnea Avg Duration (s)", results.Summary.ApneaAvgDuration},
		{"Apnea Max Duration (s)", results.Summary.ApneaMaxDuration},
		{"Apnea Total Duration (s)", results.Summary.ApneaTotalDuration},
		{"AHI (estimated)", results.Summary.AHIEstimate},
		{"Snore Count", results.Summary.SnoreCount},
		{"Snore Total Duration (s)", results.Summary.SnoreTotalDuration},
		{"Snore Index (/h)", results.Summary.SnoreIndex},
	}
	for i, row := range summaryRows {
		labelCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valueCell, _ := excelize.CoordinatesToCellName(2, i+1)
		_ = f.SetCellValue(summarySheet, labelCell, row[0])
		_ = f.SetCellValue(summarySheet, valueCell, row[1])
		_ = f.SetCellStyle(summarySheet, labelCell, labelCell, headerStyle)
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 26)
	_ = f.SetColWidth(summarySheet, "B", "B", 40)

	eventsSheet := "Events"
	if _, err := f.NewSheet(eventsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	for col, header := range EventsCSVHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(eventsSheet, cell, header)
		_ = f.SetCellStyle(eventsSheet, cell, cell, headerStyle)
	}
	for i, e := range results.Events {
		for col, value := range eventRow(job, e) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(eventsSheet, cell, value)
		}
	}
	_ = f.SetColWidth(eventsSheet, "A", "H", 14)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel: %w", err)
	}
	_ = f.Close()
	return buf.Bytes(), nil
}

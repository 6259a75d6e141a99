package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// Settings mirrors the JSON capture settings file. Keys that are absent keep
// their default value.
type Settings struct {
	SeriesName                   string  `json:"series_name"`
	OutputFolder                 string  `json:"output_folder"`
	TimeStampReportFileName      string  `json:"time_stamp_report_file_name"`
	TimeDeviationReportFileName  string  `json:"time_deviation_report_file_name"`
	SeriesNameReportPrefix       bool    `json:"series_name_report_prefix"`
	IOBufferLength               int     `json:"io_buffer_length"`
	CameraID                     int     `json:"camera_id"`
	FrameHeight                  int     `json:"frame_height"`
	FrameWidth                   int     `json:"frame_width"`
	TargetFramePerSec            float64 `json:"target_frame_per_sec"`
	RecordTimeSec                int     `json:"record_time_sec"`
	PrecapRoughMarginTimeSeconds float64 `json:"precap_rough_margin_time"`
	PrecapFineMarginTimeSeconds  float64 `json:"precap_fine_margin_time"`
	VideoExport                  bool    `json:"video_export"`
}

// DefaultSettings returns the settings used when no file is given.
func DefaultSettings() *Settings {
	return &Settings{
		SeriesName:                   "demo_",
		OutputFolder:                 "frames",
		TimeStampReportFileName:      "time_stamp_report.tab",
		TimeDeviationReportFileName:  "time_deviation_report.tab",
		SeriesNameReportPrefix:       true,
		IOBufferLength:               30,
		CameraID:                     0,
		FrameHeight:                  480,
		FrameWidth:                   640,
		TargetFramePerSec:            15,
		RecordTimeSec:                3,
		PrecapRoughMarginTimeSeconds: 0.020,
		PrecapFineMarginTimeSeconds:  0.00005,
		VideoExport:                  false,
	}
}

// LoadSettings reads a settings file over the defaults.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return s, nil
}

// ReportNames returns the time stamp and deviation report file names, with
// the series prefix applied when requested.
func (s *Settings) ReportNames() (timestamps, deviation string) {
	timestamps, deviation = s.TimeStampReportFileName, s.TimeDeviationReportFileName
	if s.SeriesNameReportPrefix {
		timestamps = s.SeriesName + "_" + timestamps
		deviation = s.SeriesName + "_" + deviation
	}
	return timestamps, deviation
}

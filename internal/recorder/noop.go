package recorder

import "BoxSentinel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
// Every alert counts as new.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAction(_ model.ActionRecord) error             { return nil }
func (n *NoopRecorder) ListActions(_ int) ([]model.ActionRecord, error)     { return nil, nil }
func (n *NoopRecorder) SummarizeActions() ([]model.ActionStat, error)       { return nil, nil }
func (n *NoopRecorder) RecordSignalAlert(_ model.SignalAlert) (bool, error) { return true, nil }
func (n *NoopRecorder) RecordScan(_ ScanRun) error                          { return nil }
func (n *NoopRecorder) Close() error                                        { return nil }

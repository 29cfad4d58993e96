// Package utils provides the scheduler's performance-tracking primitive.
package utils

import (
	"sync"
	"time"
)

// PerformanceMetrics tracks performance statistics
type PerformanceMetrics struct {
	TotalOperations   int64         `json:"total_operations"`
	SuccessfulOps     int64         `json:"successful_operations"`
	FailedOps         int64         `json:"failed_operations"`
	AverageLatency    time.Duration `json:"average_latency"`
	MinLatency        time.Duration `json:"min_latency"`
	MaxLatency        time.Duration `json:"max_latency"`
	TotalLatency      time.Duration `json:"total_latency"`
	OperationsPerSec  float64       `json:"operations_per_second"`
	StartTime         time.Time     `json:"start_time"`
	LastOperationTime time.Time     `json:"last_operation_time"`
	mutex             sync.RWMutex
}

// NewPerformanceMetrics creates a new performance metrics tracker
func NewPerformanceMetrics() *PerformanceMetrics {
	now := time.Now()
	return &PerformanceMetrics{
		StartTime:         now,
		LastOperationTime: now,
		MinLatency:        time.Duration(1<<63 - 1), // Max duration initially
	}
}

// RecordOperation records the result of an operation
func (pm *PerformanceMetrics) RecordOperation(duration time.Duration, success bool) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	pm.TotalOperations++
	if success {
		pm.SuccessfulOps++
	} else {
		pm.FailedOps++
	}

	pm.TotalLatency += duration
	if duration < pm.MinLatency {
		pm.MinLatency = duration
	}
	if duration > pm.MaxLatency {
		pm.MaxLatency = duration
	}
	if pm.TotalOperations > 0 {
		pm.AverageLatency = pm.TotalLatency / time.Duration(pm.TotalOperations)
	} else {
		pm.AverageLatency = 0
	}
	pm.LastOperationTime = time.Now()

	elapsed := pm.LastOperationTime.Sub(pm.StartTime)
	if elapsed > 0 {
		pm.OperationsPerSec = float64(pm.TotalOperations) / elapsed.Seconds()
	}
}

// GetSnapshot returns a copy of current metrics
func (pm *PerformanceMetrics) GetSnapshot() PerformanceMetrics {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()

	return PerformanceMetrics{
		TotalOperations:   pm.TotalOperations,
		SuccessfulOps:     pm.SuccessfulOps,
		FailedOps:         pm.FailedOps,
		AverageLatency:    pm.AverageLatency,
		MinLatency:        pm.MinLatency,
		MaxLatency:        pm.MaxLatency,
		TotalLatency:      pm.TotalLatency,
		OperationsPerSec:  pm.OperationsPerSec,
		StartTime:         pm.StartTime,
		LastOperationTime: pm.LastOperationTime,
	}
}

// Reset resets all metrics
func (pm *PerformanceMetrics) Reset() {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	now := time.Now()
	pm.TotalOperations = 0
	pm.SuccessfulOps = 0
	pm.FailedOps = 0
	pm.AverageLatency = 0
	pm.MinLatency = time.Duration(1<<63 - 1)
	pm.MaxLatency = 0
	pm.TotalLatency = 0
	pm.OperationsPerSec = 0
	pm.StartTime = now
	pm.LastOperationTime = now
}

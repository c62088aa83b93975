package models

import (
	"time"

	"evtracker/internal/charging"
)

// Source tags stored on charging_sessions rows.
const (
	SourceManual         = "manual"
	SourceOctopus        = "octopus"
	SourceOctopusGraphQL = "octopus-graphql"
)

// ChargingSession is a persisted session row: a detected (or manually
// entered) charging event with its civil-time presentation fields, cost and
// constituent dispatch blocks.
type ChargingSession struct {
	ID               string           `db:"id" json:"id"`
	Date             string           `db:"date" json:"date"`
	StartTime        string           `db:"start_time" json:"startTime"`
	EndTime          string           `db:"end_time" json:"endTime"`
	EnergyAdded      float64          `db:"energy_added" json:"energyAdded"`
	StartSoC         *float64         `db:"start_soc" json:"startSoC"`
	EndSoC           *float64         `db:"end_soc" json:"endSoC"`
	TariffRate       float64          `db:"tariff_rate" json:"tariffRate"`
	Cost             float64          `db:"cost" json:"cost"`
	Notes            string           `db:"notes" json:"notes"`
	Source           string           `db:"source" json:"source"`
	Vehicle          *string          `db:"vehicle" json:"vehicle"`
	OctopusSessionID string           `db:"octopus_session_id" json:"octopusSessionId"`
	DispatchCount    int              `db:"dispatch_count" json:"dispatchCount"`
	DispatchBlocks   []charging.Block `db:"dispatch_blocks" json:"dispatchBlocks,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"createdAt"`
}

// Imported reports whether the row came from the provider import path as
// opposed to manual entry.
func (s ChargingSession) Imported() bool {
	return s.Source == SourceOctopus || s.Source == SourceOctopusGraphQL
}

// Stats summarises the stored sessions for the dashboard.
type Stats struct {
	TotalSessions int     `json:"totalSessions"`
	TotalEnergy   float64 `json:"totalEnergy"`
	TotalCost     float64 `json:"totalCost"`
	AverageEnergy float64 `json:"averageEnergy"`
}

// ImportSummary is the per-run outcome reported by the importer.
type ImportSummary struct {
	Timestamp   time.Time `json:"timestamp"`
	Detected    int       `json:"total_detected"`
	Inserted    int       `json:"count"`
	Updated     int       `json:"updated"`
	Skipped     int       `json:"skipped"`
	Errors      int       `json:"errors"`
	TotalEnergy float64   `json:"total_energy_kwh"`
	TotalCost   float64   `json:"total_cost_gbp"`
}

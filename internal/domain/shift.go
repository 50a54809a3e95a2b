package domain

import (
	"time"
)

type ShiftStatus string

const (
	ShiftStatusPlanned ShiftStatus = "PLANNED"
	ShiftStatusOpen    ShiftStatus = "OPEN"
	ShiftStatusClosed  ShiftStatus = "CLOSED"
)

type AssignmentType string

const (
	AssignmentPrimary AssignmentType = "PRIMARY"
	AssignmentRelief  AssignmentType = "RELIEF"
)

type Shift struct {
	ID           string                `json:"id" gorm:"primaryKey"`
	StationID    string                `json:"station_id" gorm:"index"`
	SupervisorID string                `json:"supervisor_id"`
	ShiftNumber  int                   `json:"shift_number"`
	StartTime    time.Time             `json:"start_time"`
	EndTime      *time.Time            `json:"end_time,omitempty"`
	Status       ShiftStatus           `json:"status" gorm:"index"`
	Assignments  []IslandAssignment    `json:"island_assignments" gorm:"foreignKey:ShiftID"`
	Report       *ReconciliationReport `json:"report,omitempty" gorm:"serializer:json"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

type IslandAssignment struct {
	ID             uint           `json:"-" gorm:"primaryKey"`
	ShiftID        string         `json:"shift_id,omitempty" gorm:"index"`
	IslandID       string         `json:"island_id" validate:"required"`
	AttendantID    string         `json:"attendant_id" validate:"required"`
	AssignmentType AssignmentType `json:"assignment_type"`
}

// OpenShiftRequest carries everything captured when a shift is opened.
type OpenShiftRequest struct {
	IslandAssignments []IslandAssignment `json:"island_assignments"`
	PumpReadings      []MeterReading     `json:"pump_readings"`
	TankReadings      []DipReading       `json:"tank_readings"`
	ActorID           string             `json:"actor_id,omitempty"`
}

type CloseShiftRequest struct {
	PumpReadings []MeterReading `json:"pump_readings"`
	TankReadings []DipReading   `json:"tank_readings"`
	ActorID      string         `json:"actor_id,omitempty"`
}

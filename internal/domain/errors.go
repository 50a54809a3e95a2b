package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind discriminates core failures so callers can branch on meaning
// instead of message text.
type ErrorKind string

const (
	KindInvalidConnection  ErrorKind = "INVALID_CONNECTION"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindDuplicateReading   ErrorKind = "DUPLICATE_READING"
	KindStationBusy        ErrorKind = "STATION_BUSY"
	KindIncompleteReadings ErrorKind = "INCOMPLETE_READINGS"
	KindInvalidDipSequence ErrorKind = "INVALID_DIP_SEQUENCE"
	KindTerminalState      ErrorKind = "TERMINAL_STATE"
	KindMissingReading     ErrorKind = "MISSING_READING"
	KindInvalidTransition  ErrorKind = "INVALID_TRANSITION"
	KindValidation         ErrorKind = "VALIDATION"
)

// Reasons attached to KindInvalidConnection.
const (
	ReasonUnknownType    = "unknown_type"
	ReasonAssetNotFound  = "asset_not_found"
	ReasonForeignStation = "foreign_station"
	ReasonSelfConnection = "self_connection"
	ReasonTypeMismatch   = "type_mismatch"
	ReasonPumpHasTank    = "pump_has_tank"
	ReasonPumpHasIsland  = "pump_has_island"
	ReasonTankHasIsland  = "tank_has_island"
)

// Warning reasons reported by verification. They never block a create.
const (
	WarnAssetInactive        = "asset_inactive"
	WarnAssetMaintenance     = "asset_maintenance"
	WarnTankWithoutProduct   = "tank_without_product"
	WarnPumpInOpenShift      = "pump_in_open_shift"
	WarnAttendantMultiIsland = "attendant_multiple_islands"
)

type Error struct {
	Kind     ErrorKind `json:"kind"`
	Reason   string    `json:"reason,omitempty"`
	Message  string    `json:"message"`
	AssetIDs []string  `json:"asset_ids,omitempty"`
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Reason != "" {
		b.WriteString("(")
		b.WriteString(e.Reason)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.AssetIDs) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.AssetIDs, ", "))
		b.WriteString("]")
	}
	return b.String()
}

// Is matches on kind, and on reason when the target carries one, so that
// errors.Is(err, domain.ErrInvalidConnection) works for every reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

var (
	ErrInvalidConnection  = &Error{Kind: KindInvalidConnection}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrDuplicateReading   = &Error{Kind: KindDuplicateReading}
	ErrStationBusy        = &Error{Kind: KindStationBusy}
	ErrIncompleteReadings = &Error{Kind: KindIncompleteReadings}
	ErrInvalidDipSequence = &Error{Kind: KindInvalidDipSequence}
	ErrTerminalState      = &Error{Kind: KindTerminalState}
	ErrMissingReading     = &Error{Kind: KindMissingReading}
	ErrInvalidTransition  = &Error{Kind: KindInvalidTransition}
	ErrValidation         = &Error{Kind: KindValidation}
)

func NewError(kind ErrorKind, reason, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func InvalidConnection(reason, format string, args ...interface{}) *Error {
	return NewError(KindInvalidConnection, reason, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return NewError(KindNotFound, "", format, args...)
}

func Validation(reason, format string, args ...interface{}) *Error {
	return NewError(KindValidation, reason, format, args...)
}

// IncompleteReadings lists the assets that still lack a closing reading.
func IncompleteReadings(assetIDs []string) *Error {
	return &Error{
		Kind:     KindIncompleteReadings,
		Message:  fmt.Sprintf("%d asset(s) missing END reading", len(assetIDs)),
		AssetIDs: assetIDs,
	}
}

// KindOf returns the kind of a domain error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// AsError unwraps err into a domain error when it is one.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

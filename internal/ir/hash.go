package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSchedule = "droproute/schedule/v1"
	DomainFrame    = "droproute/frame/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// WindowValue converts a window to its canonical map form.
func WindowValue(w ActivationWindow) map[string]any {
	return map[string]any{
		"electrode_id": w.ElectrodeID,
		"on_ms":        w.OnMs,
		"off_ms":       w.OffMs,
		"step_index":   w.StepIndex,
		"route_index":  w.RouteIndex,
	}
}

// FrameValue converts a frame to its canonical map form.
// The run id is omitted so that identical playbacks hash identically.
func FrameValue(f Frame) map[string]any {
	active := f.Active
	if active == nil {
		active = []ElectrodeID{}
	}
	return map[string]any{
		"seq":    f.Seq,
		"at_ms":  f.At,
		"active": active,
	}
}

// ScheduleHash computes a content hash over an ordered window list.
// Two schedules hash equal iff they contain the same windows in the same order.
func ScheduleHash(windows []ActivationWindow) (string, error) {
	arr := make([]any, len(windows))
	for i, w := range windows {
		arr[i] = WindowValue(w)
	}
	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("ScheduleHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSchedule, canonical), nil
}

// FrameHash computes a content hash for one published frame.
func FrameHash(f Frame) (string, error) {
	canonical, err := MarshalCanonical(FrameValue(f))
	if err != nil {
		return "", fmt.Errorf("FrameHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFrame, canonical), nil
}

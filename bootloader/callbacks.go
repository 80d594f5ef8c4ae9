package bootloader

// Progress reports how far the current step has come.
// It is only passed for steps that move data; other steps report nil.
type Progress struct {
	// Current is the number of bytes the device has acknowledged
	Current uint64

	// Total is the number of bytes the step moves
	Total uint64
}

// Percentage returns the completion percentage (0.0 to 100.0).
func (p Progress) Percentage() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Current) / float64(p.Total) * 100
}

// ProgressCallback is called when a step starts and while the image is
// uploaded. label is a human readable description of the current step.
// Returning false cancels the update; FirmwareUpdate then fails with
// ErrProgressCallback.
//
// Implementations should return quickly; the update waits for the callback.
//
// Example:
//
//	cb := func(label string, p *bootloader.Progress) bool {
//	    if p == nil {
//	        fmt.Println(label)
//	        return true
//	    }
//	    fmt.Printf("\r%s: %.1f%%", label, p.Percentage())
//	    return true
//	}
type ProgressCallback func(label string, progress *Progress) bool
